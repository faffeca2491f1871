package criteria

import (
	"strconv"

	"github.com/viant/kproc/model/proc"
	"github.com/viant/kproc/service/dao"
)

// MatchSnapshot returns true when snapshot satisfies every parameter;
// unknown parameter names are ignored.
func MatchSnapshot(snapshot *proc.Snapshot, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		switch parameter.Name {
		case dao.ParamBootID:
			if !matchAny(snapshot.BootID, parameter.Value) {
				return false
			}
		case dao.ParamPid:
			found := false
			for _, stat := range snapshot.Stats {
				if stat.InUse && matchAny(strconv.Itoa(stat.Pid), parameter.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func matchAny(actual string, value interface{}) bool {
	switch expected := value.(type) {
	case string:
		return actual == expected
	case []string:
		for _, candidate := range expected {
			if actual == candidate {
				return true
			}
		}
		return false
	case int:
		return actual == strconv.Itoa(expected)
	}
	return true
}
