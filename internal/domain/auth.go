package domain

// SubjectType differentiates Discord identities from local operator accounts.
type SubjectType string

const (
	SubjectTypeDiscord SubjectType = "discord"
	SubjectTypeLocal   SubjectType = "local"
)
