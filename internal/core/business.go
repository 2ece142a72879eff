package core

import "strings"

// MaxCompanies is the number of businesses a member may register.
const MaxCompanies = 5

type (
	Company struct {
		ID        int64  `json:"id,omitempty"`
		Name      string `json:"name"`
		BizNumber string `json:"bizNumber"`
	}

	// Member is the filer profile used on submissions.
	Member struct {
		Name          string `json:"name"`
		PhoneNumber   string `json:"phoneNumber"`
		HometaxUserID string `json:"hometaxUserId"`
		BirthDate     string `json:"birthDate"`
		RepresentName string `json:"representName"`
	}

	Schedule struct {
		Label    string    `json:"label"`
		Deadline string    `json:"deadline"`
		Status   TaxStatus `json:"status"`
	}

	TaxStatus    string
	MonthStatus  string
	FilingStatus string
)

const (
	TaxRequired        TaxStatus = "required"
	TaxCompleted       TaxStatus = "completed"
	TaxOverdue         TaxStatus = "overdue"
	TaxHometaxRequired TaxStatus = "hometax_required"
	TaxEmpty           TaxStatus = "empty"
	TaxErrorResolving  TaxStatus = "error_resolving"
	TaxRefileRequired  TaxStatus = "refile_required"
)

const (
	MonthDefault   MonthStatus = "default"
	MonthCompleted MonthStatus = "completed"
	MonthLocked    MonthStatus = "locked"
	MonthError     MonthStatus = "error"
)

const (
	FilingPending       FilingStatus = "PENDING"
	FilingAuthRequested FilingStatus = "AUTH_REQUESTED"
	FilingInProgress    FilingStatus = "FILING"
	FilingCompleted     FilingStatus = "COMPLETED"
	FilingFailed        FilingStatus = "FAILED"
)

// IsComplete reports whether every filer field is filled in.
func (m Member) IsComplete() bool {
	for _, v := range []string{m.Name, m.PhoneNumber, m.HometaxUserID, m.BirthDate, m.RepresentName} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Fileable reports whether a declaration can be started for the status.
func (s TaxStatus) Fileable() bool {
	return s == TaxRequired || s == TaxOverdue
}

func (s TaxStatus) MonthStatus() MonthStatus {
	switch s {
	case TaxCompleted:
		return MonthCompleted
	case TaxHometaxRequired:
		return MonthLocked
	case TaxErrorResolving, TaxRefileRequired, TaxOverdue:
		return MonthError
	default:
		return MonthDefault
	}
}

// Label is the status badge text; empty for statuses without one.
func (s TaxStatus) Label() string {
	switch s {
	case TaxRequired, TaxOverdue:
		return "신고 필요"
	case TaxCompleted:
		return "신고 완료"
	case TaxHometaxRequired:
		return "연동 필요"
	case TaxErrorResolving:
		return "오류 해결중"
	case TaxRefileRequired:
		return "재신고 필요"
	default:
		return ""
	}
}

func (s TaxStatus) IsError() bool {
	return s == TaxErrorResolving || s == TaxRefileRequired
}

func (s FilingStatus) Terminal() bool {
	return s == FilingCompleted || s == FilingFailed
}

// Message is the overlay text shown while the job is in s.
func (s FilingStatus) Message() string {
	switch s {
	case FilingPending:
		return "신고 요청을 접수하고 있어요"
	case FilingAuthRequested:
		return "간편인증을 완료해주세요"
	case FilingInProgress:
		return "홈택스에 신고하고 있어요"
	case FilingCompleted:
		return "원천세 신고가 완료되었습니다."
	case FilingFailed:
		return "신고에 실패했어요. 다시 시도해주세요."
	default:
		return "신고를 준비하고 있어요"
	}
}
