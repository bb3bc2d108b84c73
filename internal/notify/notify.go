// Package notify is the seam to the external mail collaborator. Only the
// "send templated message to address" interface is consumed here; the real
// delivery transport lives outside this subsystem.
package notify

import "log"

// Sender delivers identity-related notifications to an account's email.
type Sender interface {
	SendVerification(email, token string) error
	SendPasswordReset(email, token string) error
	SendPasswordChanged(email string) error
}

// LogSender 开发/测试用实现：只写日志，不发真实邮件。
// 注意令牌不落日志，只记事件本身。
type LogSender struct{}

func (LogSender) SendVerification(email, token string) error {
	log.Printf("notify: verification email queued for %s", email)
	return nil
}

func (LogSender) SendPasswordReset(email, token string) error {
	log.Printf("notify: password reset email queued for %s", email)
	return nil
}

func (LogSender) SendPasswordChanged(email string) error {
	log.Printf("notify: password changed notice queued for %s", email)
	return nil
}
