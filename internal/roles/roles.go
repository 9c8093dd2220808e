package roles

// Role names. Keep these stable; they are part of the token wire contract.
const (
	Admin           = "ADMIN"
	SuperInstructor = "SUPER_INSTRUCTOR"
	Instructor      = "INSTRUCTOR"
	Learner         = "LEARNER"
)

func IsKnown(role string) bool {
	switch role {
	case Admin, SuperInstructor, Instructor, Learner:
		return true
	default:
		return false
	}
}

// rank orders roles by privilege. Unknown roles rank below everything so
// a fabricated role claim never outranks a real one.
func rank(role string) int {
	switch role {
	case Admin:
		return 3
	case SuperInstructor:
		return 2
	case Instructor:
		return 1
	case Learner:
		return 0
	default:
		return -1
	}
}

// AtLeast reports whether role carries at least the privilege of min.
func AtLeast(role, min string) bool {
	return rank(role) >= rank(min) && rank(role) >= 0
}
