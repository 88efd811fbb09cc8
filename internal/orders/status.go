package orders

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSelesai Status = "SELESAI" // completed
	StatusBatal   Status = "BATAL"   // cancelled
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSelesai, StatusBatal:
		return true
	}
	return false
}

// SELESAI -> BATAL is the one exit from a terminal-looking state: it exists
// to reverse the stock decrement. BATAL is final, and nothing ever moves
// back to PENDING.
var validNext = map[Status]map[Status]bool{
	StatusPending: {StatusSelesai: true, StatusBatal: true},
	StatusSelesai: {StatusBatal: true},
	StatusBatal:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
