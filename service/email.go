package service

import (
	"fmt"
	"html"

	"fintrack/config"
	"fintrack/events"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled 是否已启用邮件
func (s *EmailService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled
}

// SendPasswordResetEmail 发送密码重置邮件
func (s *EmailService) SendPasswordResetEmail(toEmail, name, resetLink string) error {
	if !s.Enabled() {
		return fmt.Errorf("email service disabled, set FINANCE_EMAIL_ENABLED=true")
	}
	return s.sendEmail(toEmail, "Reset your password", s.generateResetEmailBody(name, resetLink))
}

// SendBudgetAlertEmail 发送预算提醒邮件
func (s *EmailService) SendBudgetAlertEmail(toEmail, name, currency string, alert *events.BudgetAlert) error {
	if !s.Enabled() {
		return fmt.Errorf("email service disabled, set FINANCE_EMAIL_ENABLED=true")
	}
	subject := "You are close to your monthly budget"
	if alert.Level == events.AlertOver {
		subject = "You have exceeded your monthly budget"
	}
	return s.sendEmail(toEmail, subject, s.generateBudgetAlertBody(name, currency, alert))
}

// generateResetEmailBody 生成重置邮件内容
func (s *EmailService) generateResetEmailBody(name, resetLink string) string {
	name = html.EscapeString(name)
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #2563eb, #1d4ed8); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .btn { display: inline-block; background: #2563eb; color: white !important; text-decoration: none; padding: 14px 40px; border-radius: 8px; font-weight: 600; margin: 20px 0; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .warning p { margin: 0; color: #856404; font-size: 14px; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
        .link { word-break: break-all; color: #2563eb; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Expense Tracker</h1>
        </div>
        <div class="content">
            <p>Hi <strong>%s</strong>,</p>
            <p>We received a request to reset your password. Click the button below to choose a new one:</p>
            <p style="text-align: center;">
                <a href="%s" class="btn">Reset password</a>
            </p>
            <div class="warning">
                <p>This link expires in <strong>1 hour</strong>.</p>
                <p>If you did not request a password reset, you can ignore this email.</p>
            </div>
            <p>If the button does not work, copy this link into your browser:</p>
            <p class="link">%s</p>
        </div>
        <div class="footer">
            <p>This is an automated message, please do not reply.</p>
        </div>
    </div>
</body>
</html>
`, name, resetLink, resetLink)
}

// generateBudgetAlertBody 生成预算提醒邮件内容
func (s *EmailService) generateBudgetAlertBody(name, currency string, alert *events.BudgetAlert) string {
	headline := "You have used at least 80% of your budget"
	color := "#f59e0b"
	if alert.Level == events.AlertOver {
		headline = "You have gone over your budget"
		color = "#ef4444"
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2 style="color: %s;">%s</h2>
    <p>Hi <strong>%s</strong>,</p>
    <p>Budget for %02d/%d: <strong>%s %.2f</strong></p>
    <p>Spent so far: <strong>%s %.2f</strong></p>
    <p style="color: #666;">Expense Tracker</p>
</body>
</html>
`, color, headline, html.EscapeString(name), alert.Month, alert.Year, currency, alert.Limit, currency, alert.Spent)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
