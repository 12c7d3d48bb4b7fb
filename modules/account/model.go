package account

const (
	usersKey         = "mazylab_users"
	currentUserKey   = "mazylab_user"
	AdminEmail       = "admin@mazylab.com"
	adminPassword    = "adminpassword"
	minPasswordChars = 6
)

// Error - 사용자에게 그대로 보여줄 계정 오류
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmptyFields    = &Error{Code: "auth_error_empty", Message: "Email and password are required."}
	ErrInvalidEmail   = &Error{Code: "auth_error_invalid_email", Message: "Please enter a valid email address."}
	ErrPasswordLength = &Error{Code: "auth_error_password_length", Message: "Password must be at least 6 characters long."}
	ErrLoginFailed    = &Error{Code: "auth_error_login_failed", Message: "Invalid email or password."}
	ErrRegisterFailed = &Error{Code: "auth_error_register_failed", Message: "An account with this email already exists."}
	ErrEmailExists    = &Error{Code: "admin_error_email_exists", Message: "A user with this email already exists."}
	ErrDeleteAdmin    = &Error{Code: "admin_error_delete_admin", Message: "The admin account cannot be deleted."}
	ErrUserNotFound   = &Error{Code: "user_not_found", Message: "User not found."}
	ErrNotLoggedIn    = &Error{Code: "not_logged_in", Message: "Not logged in."}
)

// UserRecord - mazylab_users에 저장되는 값 (email은 키)
type UserRecord struct {
	Password string `json:"password"`
	Company  string `json:"company"`
	School   string `json:"school"`
	Industry string `json:"industry"`
	Phone    string `json:"phone"`
}

// User - 비밀번호를 뺀 공개 프로필
type User struct {
	Email    string `json:"email"`
	Company  string `json:"company"`
	School   string `json:"school"`
	Industry string `json:"industry"`
	Phone    string `json:"phone"`
}

// RegistrationData - 가입 / 관리자 편집 폼
type RegistrationData struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Company  string `json:"company"`
	School   string `json:"school"`
	Industry string `json:"industry"`
	Phone    string `json:"phone"`
}

func (d RegistrationData) record() UserRecord {
	return UserRecord{
		Password: d.Password,
		Company:  d.Company,
		School:   d.School,
		Industry: d.Industry,
		Phone:    d.Phone,
	}
}

func (r UserRecord) user(email string) User {
	return User{
		Email:    email,
		Company:  r.Company,
		School:   r.School,
		Industry: r.Industry,
		Phone:    r.Phone,
	}
}

// IsAdmin - 관리자 이메일 여부
func IsAdmin(email string) bool {
	return email == AdminEmail
}
