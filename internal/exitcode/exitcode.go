package exitcode

const (
	Success           = 0
	RuntimeFailure    = 1
	InvalidUsage      = 2
	InvalidConfig     = 3
	MissingDependency = 4
	ResolveFailed     = 6
	MaterializeFailed = 7
	Interrupted       = 130
)
