package api

// LoginRequest представляет запрос первого фактора аутентификации
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse представляет ответ /auth/login-2fa
// Сервер либо сразу выдает токены, либо требует второй фактор (step > 0)
type LoginResponse struct {
	Status       string `json:"status,omitempty"`
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`  // JWT access token
	RefreshToken string `json:"refreshToken,omitempty"` // refresh token
	ExpiresIn    int64  `json:"expiresIn,omitempty"`    // время жизни access token в секундах
	Step         int    `json:"step,omitempty"`         // шаг 2FA, ожидающий подтверждения
	Success      bool   `json:"success"`
}

// OTPRequired reports whether the server asked for the second factor
// instead of issuing tokens right away.
func (r *LoginResponse) OTPRequired() bool {
	return r.AccessToken == "" && (r.Step > 0 || r.Status != "")
}

// VerifyOTPResponse представляет ответ /auth/verify-otp
type VerifyOTPResponse struct {
	Email        string `json:"email,omitempty"`
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	Success      bool   `json:"success"`
}

// RefreshRequest представляет запрос обновления access token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse представляет ответ с парой токенов (/auth/refresh)
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	Success      bool   `json:"success"`
}

// Roles accepted by the registration endpoint.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Document types accepted by the registration endpoint.
const (
	DocumentCC = "CC" // Cédula de Ciudadanía
	DocumentTI = "TI" // Tarjeta de Identidad
	DocumentCE = "CE" // Cédula de Extranjería
	DocumentPP = "PP" // Pasaporte
)

// RegisterRequest представляет запрос публичной регистрации нового члена клуба
type RegisterRequest struct {
	FirstName             string `json:"firstName"             validate:"required"`
	LastName              string `json:"lastName"              validate:"required"`
	Email                 string `json:"email"                 validate:"required,email"`
	DocumentType          string `json:"documentType"          validate:"required,oneof=CC TI CE PP"`
	DocumentNumber        string `json:"documentNumber"        validate:"required"`
	Password              string `json:"password"              validate:"required,min=8"`
	PhoneNumber           string `json:"phoneNumber"           validate:"required"`
	BirthDate             string `json:"birthDate"             validate:"required,datetime=2006-01-02"`
	EmergencyContactPhone string `json:"emergencyContactPhone" validate:"required"`
	MedicalConditions     string `json:"medicalConditions,omitempty"`
	Role                  string `json:"role"                  validate:"required,oneof=USER ADMIN"`
	MainLocationID        int64  `json:"mainLocationId,omitempty"`
}

// RegisterResponse представляет ответ на регистрацию
// Токены могут отсутствовать: тогда клиент проходит OTP flow
type RegisterResponse struct {
	Message      string `json:"message,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	UserID       int64  `json:"userId,omitempty"`
	Success      bool   `json:"success"`
}

// ResetPasswordRequest представляет запрос установки нового пароля
type ResetPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// UserInfo представляет данные пользователя из /auth/user-info
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	ID    int64  `json:"id"`
}

// Valid reports whether the record is complete enough to cache.
// A partially populated identity is treated as absent.
func (u *UserInfo) Valid() bool {
	return u != nil && u.ID != 0 && u.Email != ""
}

// ErrorResponse представляет нормализованный ответ с ошибкой
type ErrorResponse struct {
	Error     string `json:"error"`             // описание ошибки
	Message   string `json:"message,omitempty"` // дополнительное сообщение
	Details   string `json:"details,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Success   bool   `json:"success"`
}
