package models

// Channel канал доставки одноразового кода.
type Channel string

// Purpose сценарий, для которого выпущен одноразовый код.
type Purpose string

// Каналы доставки.
const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Назначения одноразовых кодов.
const (
	PurposeSignup Purpose = "signup"
	PurposeLogin  Purpose = "login"
	PurposeReset  Purpose = "reset"
)

// ValidChannels список допустимых каналов.
var ValidChannels = map[Channel]struct{}{
	ChannelEmail: {},
	ChannelPhone: {},
}

// ValidPurposes список допустимых назначений.
var ValidPurposes = map[Purpose]struct{}{
	PurposeSignup: {},
	PurposeLogin:  {},
	PurposeReset:  {},
}

// IsValid проверяет, что канал известен.
func (c Channel) IsValid() bool {
	_, ok := ValidChannels[c]
	return ok
}

// IsValid проверяет, что назначение известно.
func (p Purpose) IsValid() bool {
	_, ok := ValidPurposes[p]
	return ok
}
