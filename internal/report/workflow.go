package report

import (
	"fmt"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/user"
)

// Route is where a submitter's reports enter the approval chain.
type Route struct {
	Entry         Status
	SpecialReview Status
}

// routes is the single routing table shared by the clean submit path and exception approval.
var routes = map[user.Role]Route{
	user.RoleEmployee: {Entry: StatusManagerReview, SpecialReview: StatusCFOSpecialReview},
	user.RoleManager:  {Entry: StatusCFOReview, SpecialReview: StatusCFOSpecialReview},
	user.RoleCFO:      {Entry: StatusCEOReview, SpecialReview: StatusCEOSpecialReview},
	user.RoleCEO:      {Entry: StatusCFOReview, SpecialReview: StatusCFOSpecialReview},
}

func RouteFor(role user.Role) (Route, error) {
	route, ok := routes[role]
	if !ok {
		return Route{}, internal.NewValidationError(fmt.Sprintf("no approval route for role %q", role), internal.ErrCodeInvalidRole)
	}
	return route, nil
}

type stage struct {
	approver  user.Role
	onApprove Status
}

// approvalStages drives approve and reject in the normal chain.
var approvalStages = map[Status]stage{
	StatusManagerReview: {approver: user.RoleManager, onApprove: StatusCFOReview},
	StatusCFOReview:     {approver: user.RoleCFO, onApprove: StatusApproved},
	StatusCEOReview:     {approver: user.RoleCEO, onApprove: StatusApproved},
}

var exceptionReviewers = map[Status]user.Role{
	StatusCFOSpecialReview: user.RoleCFO,
	StatusCEOSpecialReview: user.RoleCEO,
}

// ApproverFor returns the role that may approve or reject in s.
func ApproverFor(s Status) (user.Role, bool) {
	st, ok := approvalStages[s]
	return st.approver, ok
}

// ExceptionReviewerFor returns the role that decides exception reviews in s.
func ExceptionReviewerFor(s Status) (user.Role, bool) {
	role, ok := exceptionReviewers[s]
	return role, ok
}

// PendingFor lists the statuses waiting on role, normal chain first.
func PendingFor(role user.Role) []Status {
	var statuses []Status
	for _, s := range Statuses {
		if st, ok := approvalStages[s]; ok && st.approver == role {
			statuses = append(statuses, s)
		}
	}
	for _, s := range Statuses {
		if r, ok := exceptionReviewers[s]; ok && r == role {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

type Outcome string

const (
	OutcomeSubmitted         Outcome = "SUBMITTED"
	OutcomeFlagged           Outcome = "FLAGGED"
	OutcomeExceptionApproved Outcome = "EXCEPTION_APPROVED"
	OutcomeExceptionRejected Outcome = "EXCEPTION_REJECTED"
	OutcomeApproved          Outcome = "APPROVED"
	OutcomeRejected          Outcome = "REJECTED"
)

// Next is the workflow transition function. It only checks that outcome is legal from
// status; actor checks belong to the caller.
func Next(status Status, submitterRole user.Role, outcome Outcome) (Status, error) {
	switch outcome {
	case OutcomeSubmitted, OutcomeFlagged:
		if !status.Editable() {
			return "", invalidTransition(status, outcome)
		}
		route, err := RouteFor(submitterRole)
		if err != nil {
			return "", err
		}
		if outcome == OutcomeFlagged {
			return route.SpecialReview, nil
		}
		return route.Entry, nil

	case OutcomeExceptionApproved, OutcomeExceptionRejected:
		if _, ok := exceptionReviewers[status]; !ok {
			return "", invalidTransition(status, outcome)
		}
		if outcome == OutcomeExceptionRejected {
			return StatusChangesRequested, nil
		}
		route, err := RouteFor(submitterRole)
		if err != nil {
			return "", err
		}
		return route.Entry, nil

	case OutcomeApproved, OutcomeRejected:
		st, ok := approvalStages[status]
		if !ok {
			return "", invalidTransition(status, outcome)
		}
		if outcome == OutcomeRejected {
			return StatusRejected, nil
		}
		return st.onApprove, nil
	}

	return "", internal.NewValidationError(fmt.Sprintf("unknown workflow outcome %q", outcome), internal.ErrCodeInvalidTransition)
}

func invalidTransition(status Status, outcome Outcome) error {
	return internal.NewInvalidStateError(
		fmt.Sprintf("report in status %s cannot be %s", status, describe(outcome)),
		internal.ErrCodeInvalidTransition,
	)
}

func describe(o Outcome) string {
	switch o {
	case OutcomeSubmitted, OutcomeFlagged:
		return "submitted"
	case OutcomeExceptionApproved, OutcomeExceptionRejected:
		return "exception-reviewed"
	case OutcomeApproved:
		return "approved"
	case OutcomeRejected:
		return "rejected"
	}
	return string(o)
}
