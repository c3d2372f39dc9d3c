package registration

// Status is the terminal classification of one registration run.
type Status int

const (
	StatusSuccess Status = iota + 1
	StatusAlreadyEnrolled
	StatusInvalidCredentials
	StatusAgeCriteriaNotMet
	StatusActivityFull
	StatusActivityCancelled
	StatusRegistrationNeverAvailable
	StatusFailed
	StatusTimeout
)

var statusNames = map[Status]string{
	StatusSuccess:                    "success",
	StatusAlreadyEnrolled:            "already_enrolled",
	StatusInvalidCredentials:         "invalid_credentials",
	StatusAgeCriteriaNotMet:          "age_criteria_not_met",
	StatusActivityFull:               "activity_full",
	StatusActivityCancelled:          "activity_cancelled",
	StatusRegistrationNeverAvailable: "registration_never_available",
	StatusFailed:                     "failed",
	StatusTimeout:                    "timeout",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets a Status appear by name in logs and JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Succeeded reports whether the participant ends up registered.
func (s Status) Succeeded() bool {
	return s == StatusSuccess || s == StatusAlreadyEnrolled
}

// Outcome is the result of one run.
type Outcome struct {
	Status Status

	// Err is the automation error behind a StatusFailed outcome, if any.
	Err error

	// Screenshot and Snapshot are the diagnostic files written when the run
	// failed with an error. Empty when not captured.
	Screenshot string
	Snapshot   string
}
