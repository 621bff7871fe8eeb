package simsource

import "griprumble-go/errcode"

// Unavailable is the Source used when no simulator client library exists on
// this platform. Open always fails, so the telemetry worker sits in its
// retry loop and the rest of the daemon stays usable.
type Unavailable struct{}

func (Unavailable) Open(appName string) error { return errcode.SourceUnavailable }
func (Unavailable) Close() error              { return nil }

func (Unavailable) AddToDefinition(defID uint32, name, unit string, ft FieldType) error {
	return errcode.SourceUnavailable
}

func (Unavailable) RequestData(reqID, defID uint32, period Period) error {
	return errcode.SourceUnavailable
}

func (Unavailable) SubscribeEvent(eventID uint32, name string) error {
	return errcode.SourceUnavailable
}

func (Unavailable) NextDispatch() (Message, error) { return nil, ErrNoDispatch }
