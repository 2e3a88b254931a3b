package api

import "github.com/haimbb47/SkillForge/fhevmClient/controller"

// SessionController defines the methods needed by the API server
type SessionController interface {
	State() controller.Snapshot
	Refresh()
}
