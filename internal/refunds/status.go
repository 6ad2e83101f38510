package refunds

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

func (s Status) in(set ...Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// Stage names an admin-driven forward step.
type Stage string

const (
	StageProcess  Stage = "process"
	StageApprove  Stage = "approve"
	StageComplete Stage = "complete"
)

// from returns the status a stage starts from and the one it ends in.
func (s Stage) from() (Status, Status, bool) {
	switch s {
	case StageProcess:
		return StatusPending, StatusProcessing, true
	case StageApprove:
		return StatusProcessing, StatusApproved, true
	case StageComplete:
		return StatusApproved, StatusCompleted, true
	}
	return "", "", false
}

type Method string

const (
	MethodOriginalPayment Method = "ORIGINAL_PAYMENT"
	MethodBankTransfer    Method = "BANK_TRANSFER"
	MethodCredit          Method = "CREDIT"
	MethodVoucher         Method = "VOUCHER"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodOriginalPayment, MethodBankTransfer, MethodCredit, MethodVoucher:
		return true
	}
	return false
}

type Kind string

const (
	KindOriginal     Kind = "ORIGINAL"
	KindCompensating Kind = "COMPENSATING"
	KindRetry        Kind = "RETRY"
)
