package dao

// Well known list parameter names
const (
	// ParamBootID restricts snapshots to one kernel boot.
	ParamBootID = "BootID"
	// ParamPid restricts snapshots to those reporting a live pid.
	ParamPid = "Pid"
)

// Parameter is a named list filter
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a parameter; more than one value means any of them
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
