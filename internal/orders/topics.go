package orders

const (
	TopicOrderCreated   = "salon.order.created"
	TopicOrderCompleted = "salon.order.completed"
	TopicOrderCancelled = "salon.order.cancelled"
)

// Partition key = order uid, so every event of one order keeps its order.
func PartitionKey(orderUID string) []byte { return []byte(orderUID) }
