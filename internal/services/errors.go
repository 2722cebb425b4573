package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type ServiceError struct {
	Status  int
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrNotFound(msg string) error {
	return ServiceError{Status: 404, Message: msg}
}

func ErrBadRequest(msg string) error {
	return ServiceError{Status: 400, Message: msg}
}

func ErrForbidden(msg string) error {
	return ServiceError{Status: 403, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: 401, Message: msg}
}

func ErrConflict(msg string) error {
	return ServiceError{Status: 409, Message: msg}
}

func ErrTooManyRequests(msg string) error {
	return ServiceError{Status: 429, Message: msg}
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// User-facing messages.
const (
	MsgServerError        = "خطای سرور"
	MsgInvalidPayload     = "اطلاعات ارسالی نامعتبر است"
	MsgCodeRequired       = "کد دسترسی الزامی است"
	MsgCodeInvalid        = "کد دسترسی نامعتبر یا منقضی شده است"
	MsgCodeNotFound       = "کد دسترسی یافت نشد"
	MsgTooManyAttempts    = "تعداد تلاش‌ها بیش از حد مجاز است. لطفاً بعداً دوباره امتحان کنید."
	MsgAccessGrantMissing = "ابتدا کد دسترسی را وارد کنید"
	MsgFieldsRequired     = "تمام فیلدها الزامی هستند"
	MsgUsernameTooShort   = "نام کاربری باید حداقل ۳ کاراکتر باشد"
	MsgPasswordTooShort   = "رمز عبور باید حداقل ۶ کاراکتر باشد"
	MsgEmailInvalid       = "ایمیل نامعتبر است"
	MsgUsernameTaken      = "این نام کاربری قبلاً ثبت شده است"
	MsgEmailTaken         = "این ایمیل قبلاً ثبت شده است"
	MsgLoginRequired      = "نام کاربری و رمز عبور الزامی هستند"
	MsgBadCredentials     = "نام کاربری یا رمز عبور نامعتبر است"
	MsgTokenMissing       = "توکن یافت نشد"
	MsgTokenInvalid       = "توکن نامعتبر است"
	MsgUserNotFound       = "کاربر یافت نشد"
	MsgAccountExpired     = "حساب کاربری شما منقضی شده است. لطفاً کد دسترسی جدید دریافت کنید."
	MsgSessionNotFound    = "جلسه یافت نشد"
	MsgIncompleteMessage  = "اطلاعات ناقص"
	MsgMessageRequired    = "پیام الزامی است"
	MsgInvalidRole        = "نقش پیام نامعتبر است"
	MsgUnauthorized       = "دسترسی غیرمجاز"
	MsgInvalidAge         = "لطفاً سن معتبری وارد کنید (۱۵ تا ۶۰)."
	MsgInvalidWeek        = "لطفاً یک عدد بین ۰ تا ۴۲ وارد کنید."
	MsgInvalidGroup       = "گروه کاربری نامعتبر است"
	MsgRateLimited        = "درخواست‌های شما بیش از حد مجاز است"
)

var (
	ErrInvalidAccessCode  = ServiceError{Status: 400, Message: MsgCodeInvalid}
	ErrUsernameTaken      = ServiceError{Status: 409, Message: MsgUsernameTaken}
	ErrEmailTaken         = ServiceError{Status: 409, Message: MsgEmailTaken}
	ErrInvalidCredentials = ServiceError{Status: 401, Message: MsgBadCredentials}
	ErrAccountExpired     = ServiceError{Status: 401, Message: MsgAccountExpired}
)

const uniqueViolation = "23505"

// uniqueConstraint returns the violated constraint name when err is a
// PostgreSQL unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
