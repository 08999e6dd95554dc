package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func SendEmail(cfg SMTPConfig, to, subject, body string, attachments ...string) error {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	for _, filePath := range attachments {
		if _, err := os.Stat(filePath); err != nil {
			Logger.Warnf("Attachment not found, skipping: %s", filePath)
			continue
		}
		msg.Attach(filePath, gomail.Rename(filepath.Base(filePath)))
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		Logger.Errorf("failed to send email to %s", to)
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}

const emailLayout = `
	<!DOCTYPE html>
	<html lang="en">
	<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
	<style>
		body { font-family: 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f6f8f7; margin: 0; padding: 0; color: #333; }
		.container { max-width: 480px; margin: 25px auto; background: #ffffff; border-radius: 12px; box-shadow: 0 4px 16px rgba(0, 0, 0, 0.08); overflow: hidden; border-top: 5px solid %s; }
		.header { background-color: %s; color: #ffffff; text-align: center; padding: 18px 12px; }
		.header h1 { margin: 0; font-size: 18px; font-weight: 600; }
		.content { padding: 20px 18px; }
		.message { font-size: 14px; line-height: 1.6; color: #444; }
		.amount-box { border: 1px solid #e1e1e1; border-radius: 8px; padding: 12px 14px; margin: 16px 0; text-align: center; }
		.amount-box h3 { margin: 0; font-size: 16px; font-weight: 700; }
		.amount-box p { margin: 6px 0 0; font-size: 13px; color: #555; }
		.action-btn { display: inline-block; background-color: #0a4d3c; color: #ffffff !important; text-decoration: none; font-weight: 600; padding: 12px 22px; border-radius: 8px; margin: 20px 0; }
		.footer { background: #f6f6f6; text-align: center; padding: 14px; font-size: 12px; color: #777; border-top: 1px solid #e5e5e5; }
		.brand { color: #0a4d3c; font-weight: bold; }
	</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">%s</div>
			<div class="footer">&copy; %d <span class="brand">Bill Buddy</span>. Split fairly, settle simply.</div>
		</div>
	</body>
	</html>
	`

func renderEmail(title, accent, heading, content string, year int) string {
	return fmt.Sprintf(emailLayout, title, accent, accent, heading, content, year)
}
