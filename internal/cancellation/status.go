package cancellation

// Status of a cancellation request. APPROVED and REJECTED are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string {
	return string(s)
}

// Reason is the customer-supplied cancellation category.
type Reason string

const (
	ReasonUserRequest      Reason = "USER_REQUEST"
	ReasonWeather          Reason = "WEATHER"
	ReasonGuideUnavailable Reason = "GUIDE_UNAVAILABLE"
	ReasonForceMajeure     Reason = "FORCE_MAJEURE"
	ReasonHealthSafety     Reason = "HEALTH_SAFETY"
	ReasonScheduleConflict Reason = "SCHEDULE_CONFLICT"
	ReasonQualityIssue     Reason = "QUALITY_ISSUE"
	ReasonOther            Reason = "OTHER"
)

// IsValid checks if the reason is one of the known categories
func (r Reason) IsValid() bool {
	switch r {
	case ReasonUserRequest, ReasonWeather, ReasonGuideUnavailable, ReasonForceMajeure,
		ReasonHealthSafety, ReasonScheduleConflict, ReasonQualityIssue, ReasonOther:
		return true
	}
	return false
}
