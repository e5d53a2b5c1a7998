package code

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrCode int

const (
	Success     ErrCode = 0
	UnDefineErr ErrCode = 1
)

// request / auth
const (
	ParamErr ErrCode = iota + 1000
	UnLogin
	InvalidToken
	LoginFormatErr
	NoPermission
)

// storage
const (
	_ ErrCode = iota + 2000
	QueryRecordErr
	CreateDataErr
	UpdateDataErr
	DeleteDataErr
)

// rpc
const (
	RPCHttpErr ErrCode = iota + 3000
	RPCHttpCodeErr
)

// reactor / cycle
const (
	ReactorNotFound ErrCode = iota + 4000
	ReactorNameExistErr
	CycleNotFound
	CycleNameExistErr
	CycleUnavailableErr
	CycleCapacityErr
	CycleArchivedErr
	CycleWindowErr
)

// order
const (
	OrderNotFound ErrCode = iota + 5000
	OrderNotEditableErr
	InvalidTransitionErr
	ConcurrencyConflictErr
	DosageErr
)

// clinic
const (
	ClinicNotFound ErrCode = iota + 6000
	ClinicInactiveErr
	ClinicExistErr
)

// notify / mail
const (
	NotifyActionAlreadyRegistryErr ErrCode = iota + 7000
	NotifySendMsgErr
	NotificationNotFound
	MailEnqueueErr
	MailSendErr
	MailPayloadErr
)

var messages = map[ErrCode]string{
	Success:     "success",
	UnDefineErr: "undefined error",

	ParamErr:       "parameter error",
	UnLogin:        "not logged in",
	InvalidToken:   "invalid token",
	LoginFormatErr: "authorization format error",
	NoPermission:   "no permission",

	QueryRecordErr: "query record error",
	CreateDataErr:  "create data error",
	UpdateDataErr:  "update data error",
	DeleteDataErr:  "delete data error",

	RPCHttpErr:     "rpc http error",
	RPCHttpCodeErr: "rpc http status error",

	ReactorNotFound:     "reactor not found",
	ReactorNameExistErr: "reactor name already exists",
	CycleNotFound:       "reactor cycle not found",
	CycleNameExistErr:   "reactor cycle name already exists",
	CycleUnavailableErr: "reactor cycle is not available on the requested date",
	CycleCapacityErr:    "reactor cycle has insufficient remaining mass",
	CycleArchivedErr:    "reactor cycle is archived",
	CycleWindowErr:      "reactor cycle start date is after its expiration date",

	OrderNotFound:          "order not found",
	OrderNotEditableErr:    "order can no longer be edited",
	InvalidTransitionErr:   "invalid order status transition",
	ConcurrencyConflictErr: "concurrent update conflict, try again",
	DosageErr:              "elbow count and dosage per elbow must be positive",

	ClinicNotFound:    "clinic not found",
	ClinicInactiveErr: "clinic account is inactive",
	ClinicExistErr:    "clinic already exists",

	NotifyActionAlreadyRegistryErr: "notify action already registered",
	NotifySendMsgErr:               "notify send message error",
	NotificationNotFound:           "notification not found",
	MailEnqueueErr:                 "mail enqueue error",
	MailSendErr:                    "mail send error",
	MailPayloadErr:                 "mail payload error",
}

var httpStatus = map[ErrCode]int{
	Success:      http.StatusOK,
	ParamErr:     http.StatusBadRequest,
	DosageErr:    http.StatusBadRequest,
	UnLogin:      http.StatusUnauthorized,
	InvalidToken: http.StatusUnauthorized,

	LoginFormatErr: http.StatusUnauthorized,
	NoPermission:   http.StatusForbidden,

	ReactorNotFound:      http.StatusNotFound,
	CycleNotFound:        http.StatusNotFound,
	OrderNotFound:        http.StatusNotFound,
	ClinicNotFound:       http.StatusNotFound,
	NotificationNotFound: http.StatusNotFound,

	ReactorNameExistErr:    http.StatusConflict,
	CycleNameExistErr:      http.StatusConflict,
	ClinicExistErr:         http.StatusConflict,
	ConcurrencyConflictErr: http.StatusConflict,

	CycleUnavailableErr:  http.StatusUnprocessableEntity,
	CycleCapacityErr:     http.StatusUnprocessableEntity,
	CycleArchivedErr:     http.StatusUnprocessableEntity,
	CycleWindowErr:       http.StatusUnprocessableEntity,
	OrderNotEditableErr:  http.StatusUnprocessableEntity,
	InvalidTransitionErr: http.StatusUnprocessableEntity,
	ClinicInactiveErr:    http.StatusForbidden,
}

func (c ErrCode) String() string {
	if msg, ok := messages[c]; ok {
		return msg
	}
	return fmt.Sprintf("error code %d", int(c))
}

func (c ErrCode) Error() string {
	return c.String()
}

func (c ErrCode) HTTPStatus() int {
	if s, ok := httpStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (c ErrCode) WithMsg(msg string) error {
	return &Error{Code: c, Msg: msg}
}

func (c ErrCode) WithMsgf(format string, args ...any) error {
	return &Error{Code: c, Msg: fmt.Sprintf(format, args...)}
}

func (c ErrCode) WithErr(err error) error {
	if err == nil {
		return c
	}
	return &Error{Code: c, Msg: err.Error(), Err: err}
}

// Error carries a code plus detail. errors.Is matches against the bare ErrCode.
type Error struct {
	Code ErrCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code.String(), e.Msg)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(ErrCode)
	return ok && t == e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// From returns the outermost code carried by err, UnDefineErr otherwise.
func From(err error) ErrCode {
	if err == nil {
		return Success
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	var c ErrCode
	if errors.As(err, &c) {
		return c
	}
	return UnDefineErr
}

// Msg returns the caller facing detail of err.
func Msg(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Msg != "" {
		return ce.Msg
	}
	return From(err).String()
}
