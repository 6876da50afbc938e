package pkg

import (
	cryptoRand "crypto/rand"
	"crypto/tls"
	"fmt"
	"html"
	"math/big"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

// Mailer 发送 HTML 邮件
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type SMTPMailer struct {
	Cfg SMTPConfig
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.Cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.Cfg.Host, m.Cfg.Port, m.Cfg.Username, m.Cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: m.Cfg.Host}
	return d.DialAndSend(msg)
}

func RandDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		x, err := cryptoRand.Int(cryptoRand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + x.Int64()))
	}
	return b.String(), nil
}

func ResetCodeHTML(username, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hello, %s.</p><p>Your password reset code is <b style="font-size:18px;">%s</b>.</p><p>It expires in %d minutes. If you did not ask for a reset, ignore this email.</p>`,
		html.EscapeString(username), code, int(ttl.Minutes()))
}
