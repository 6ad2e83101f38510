package disputes

// Status of a dispute case. RESOLVED and CLOSED are terminal.
type Status string

const (
	StatusOpen          Status = "OPEN"
	StatusInvestigating Status = "INVESTIGATING"
	StatusResolved      Status = "RESOLVED"
	StatusEscalated     Status = "ESCALATED"
	StatusClosed        Status = "CLOSED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusEscalated, StatusClosed:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed
}

func (s Status) in(set ...Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

var activeStatuses = []Status{StatusOpen, StatusInvestigating, StatusEscalated}

type Type string

const (
	TypeRefundAmount         Type = "REFUND_AMOUNT"
	TypeCancellationRejected Type = "CANCELLATION_REJECTED"
	TypeServiceNotProvided   Type = "SERVICE_NOT_PROVIDED"
	TypeQualityIssue         Type = "QUALITY_ISSUE"
	TypeBillingError         Type = "BILLING_ERROR"
	TypeOther                Type = "OTHER"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeRefundAmount, TypeCancellationRejected, TypeServiceNotProvided,
		TypeQualityIssue, TypeBillingError, TypeOther:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// atLeastHigh raises LOW and MEDIUM to HIGH.
func (p Priority) atLeastHigh() Priority {
	if p == PriorityLow || p == PriorityMedium {
		return PriorityHigh
	}
	return p
}

// ResolutionType is the outcome category of a resolved dispute.
type ResolutionType string

const (
	ResolutionFullRefund    ResolutionType = "FULL_REFUND"
	ResolutionPartialRefund ResolutionType = "PARTIAL_REFUND"
	ResolutionNoRefund      ResolutionType = "NO_REFUND"
	ResolutionCredit        ResolutionType = "CREDIT"
	ResolutionRebook        ResolutionType = "REBOOK"
)

func (r ResolutionType) IsValid() bool {
	switch r {
	case ResolutionFullRefund, ResolutionPartialRefund, ResolutionNoRefund, ResolutionCredit, ResolutionRebook:
		return true
	}
	return false
}

// RequiresAmount reports whether the outcome pays money.
func (r ResolutionType) RequiresAmount() bool {
	return r == ResolutionFullRefund || r == ResolutionPartialRefund || r == ResolutionCredit
}

type EvidenceType string

const (
	EvidenceText     EvidenceType = "TEXT"
	EvidenceDocument EvidenceType = "DOCUMENT"
	EvidencePhoto    EvidenceType = "PHOTO"
	EvidenceReceipt  EvidenceType = "RECEIPT"
	EvidenceLink     EvidenceType = "LINK"
	EvidenceOther    EvidenceType = "OTHER"
)

func (e EvidenceType) IsValid() bool {
	switch e {
	case EvidenceText, EvidenceDocument, EvidencePhoto, EvidenceReceipt, EvidenceLink, EvidenceOther:
		return true
	}
	return false
}
