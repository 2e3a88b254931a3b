package session

// Status is a construction progress notification.
type Status string

const (
	StatusSDKLoading      Status = "sdk-loading"
	StatusSDKLoaded       Status = "sdk-loaded"
	StatusSDKInitializing Status = "sdk-initializing"
	StatusSDKInitialized  Status = "sdk-initialized"
	StatusCreating        Status = "creating"
)

// StatusFunc receives status notifications in order, on the constructing
// goroutine.
type StatusFunc func(Status)

func (f StatusFunc) notify(s Status) {
	if f != nil {
		f(s)
	}
}
