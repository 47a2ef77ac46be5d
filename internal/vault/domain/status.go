package domain

// Status is a point-in-time view of the master vault.
type Status struct {
	Initialized bool
	Sealed      bool
	State       State
	Shares      int
	Threshold   int
	Progress    int
	Version     string
	// Ready is true once the broker holds an authenticated, unsealed handle.
	Ready bool
}
