package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

func (c Config) complete() bool {
	return c.Host != "" && c.Port > 0 && c.From != "" && c.To != "" && c.Password != ""
}

// Mailer sends operator emails over SMTP. smtp.SendMail upgrades to TLS via
// STARTTLS when the server offers it.
type Mailer struct {
	cfg      Config
	logger   *zap.Logger
	printer  *message.Printer
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	timeNow  func() time.Time
}

func NewMailer(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{
		cfg:      cfg,
		logger:   logger,
		printer:  message.NewPrinter(language.English),
		sendMail: smtp.SendMail,
		timeNow:  time.Now,
	}
}

func (m *Mailer) SendErrorAlert(ctx context.Context, errs []string) error {
	subject := "Trading Bot Alert: Consecutive Errors Detected"
	return m.send(ctx, subject, m.errorBody(errs))
}

func (m *Mailer) SendSummary(ctx context.Context, summary domain.PortfolioSummary, positions []*domain.Position) error {
	subject := "Trading Bot Periodic Summary - " + m.timeNow().Format("2006-01-02 15:04")
	return m.send(ctx, subject, m.summaryBody(summary, positions))
}

func (m *Mailer) errorBody(errs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The trading bot has collected %d errors and requires attention.\n\n", len(errs))
	b.WriteString("--- Collected Errors ---\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	b.WriteString("\nPlease check the bot's logs for more details.")
	return b.String()
}

func (m *Mailer) summaryBody(s domain.PortfolioSummary, positions []*domain.Position) string {
	p := m.printer
	var b strings.Builder
	b.WriteString("This is a scheduled summary of the trading bot's performance.\n\n")

	b.WriteString("--- Portfolio Summary ---\n")
	b.WriteString(p.Sprintf("Total Equity: $%.2f\n", s.TotalEquity))
	b.WriteString(p.Sprintf("Available Balance: $%.2f\n", s.AvailableBalance))
	b.WriteString(p.Sprintf("Unrealized PnL: $%.2f\n", s.UnrealizedPnL))
	b.WriteString(p.Sprintf("Open Positions Count: %d\n\n", s.OpenPositionsCount))

	b.WriteString("--- Open Positions ---\n")
	if len(positions) == 0 {
		b.WriteString("No open positions at the moment.\n")
	}
	for _, pos := range positions {
		b.WriteString(p.Sprintf("Symbol: %s\n", pos.Symbol))
		b.WriteString(p.Sprintf("  Side: %s\n", strings.ToUpper(string(pos.Side))))
		b.WriteString(p.Sprintf("  Quantity: %.6f\n", pos.Quantity))
		b.WriteString(p.Sprintf("  Leverage: %dx\n", pos.Leverage))
		b.WriteString(p.Sprintf("  Entry Price: $%.4f\n", pos.EntryPrice))
		b.WriteString(p.Sprintf("  Current Price: $%.4f\n", pos.CurrentPrice))
		b.WriteString(p.Sprintf("  Unrealized PnL: $%.4f (%.2f%%)\n", pos.UnrealizedPnL, pos.PnLPct()))
		b.WriteString("---\n")
	}
	b.WriteString("\nBot continues to operate normally.")
	return b.String()
}

func (m *Mailer) send(ctx context.Context, subject, body string) error {
	if !m.cfg.complete() {
		m.logger.Warn("Email configuration is incomplete, not sending", zap.String("subject", subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + m.cfg.To,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	user := m.cfg.Username
	if user == "" {
		user = m.cfg.From
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", user, m.cfg.Password, m.cfg.Host)
	if err := m.sendMail(addr, auth, m.cfg.From, []string{m.cfg.To}, []byte(msg)); err != nil {
		return fmt.Errorf("send %q: %w", subject, err)
	}
	m.logger.Info("Email sent", zap.String("subject", subject), zap.String("to", m.cfg.To))
	return nil
}
