package exitcode

const (
	Success        = 0
	UsageError     = 1
	ConfigError    = 2
	DBConnError    = 3
	CommitError    = 4
	RangeError     = 5
	IntegrityError = 6
	InputError     = 7 // the source file could not be read at all
	PartialSuccess = 8 // committed, but some rows were rejected
)
