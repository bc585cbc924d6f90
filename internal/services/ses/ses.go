// Package ses provides email notification services via AWS SES
package ses

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"credit-line-service/internal/models"
	"credit-line-service/internal/utils"
)

// EmailClient is the subset of the SES client used by Service.
type EmailClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Service handles SES email operations
type Service struct {
	client    EmailClient
	fromEmail string
	toEmail   string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// LoanApprovedParams contains data for the loan approval email
type LoanApprovedParams struct {
	LoanID             int64
	CustomerID         int64
	CustomerName       string
	LoanAmount         string
	InterestRate       string
	MonthlyInstallment string
	Tenure             int
	StartDate          string
	EndDate            string
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service that sends from fromEmail to the
// lending desk mailbox toEmail.
func NewService(ctx context.Context, region, fromEmail, toEmail string) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(ses.NewFromConfig(cfg), fromEmail, toEmail), nil
}

// NewWithClient creates a service around an existing client.
func NewWithClient(client EmailClient, fromEmail, toEmail string) *Service {
	return &Service{
		client:    client,
		fromEmail: fromEmail,
		toEmail:   toEmail,
	}
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to send email",
			utils.String("to", params.To),
			utils.String("subject", params.Subject),
			utils.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.GetLogger().Info("Email sent successfully",
		utils.String("to", params.To),
		utils.String("subject", params.Subject),
		utils.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// NotifyLoanApproved emails the lending desk about a newly booked loan.
func (s *Service) NotifyLoanApproved(ctx context.Context, customer *models.Customer, loan *models.Loan) error {
	params := BuildLoanApprovedParams(customer, loan)

	htmlBody, err := renderLoanApprovedHTML(params)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	_, err = s.SendEmail(ctx, EmailParams{
		To:       s.toEmail,
		Subject:  fmt.Sprintf("Loan %d approved for %s", params.LoanID, params.CustomerName),
		HTMLBody: htmlBody,
		TextBody: renderLoanApprovedText(params),
	})
	return err
}

// BuildLoanApprovedParams creates notification params from a booked loan
func BuildLoanApprovedParams(customer *models.Customer, loan *models.Loan) LoanApprovedParams {
	return LoanApprovedParams{
		LoanID:             loan.ID,
		CustomerID:         customer.ID,
		CustomerName:       customer.FullName(),
		LoanAmount:         loan.LoanAmount.StringFixed(2),
		InterestRate:       loan.InterestRate.StringFixed(2),
		MonthlyInstallment: loan.MonthlyInstallment.StringFixed(2),
		Tenure:             loan.TenureMonths,
		StartDate:          loan.StartDate.Format(time.DateOnly),
		EndDate:            loan.EndDate.Format(time.DateOnly),
	}
}

var loanApprovedTemplate = template.Must(template.New("loan_approved").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        table { border-collapse: collapse; width: 100%; }
        td { padding: 6px 10px; border-bottom: 1px solid #eee; }
        td.label { color: #777; width: 45%; }
    </style>
</head>
<body>
    <h2>Loan {{.LoanID}} approved</h2>
    <p>A new loan has been booked for {{.CustomerName}} (customer {{.CustomerID}}).</p>
    <table>
        <tr><td class="label">Loan amount</td><td>{{.LoanAmount}}</td></tr>
        <tr><td class="label">Interest rate</td><td>{{.InterestRate}}%</td></tr>
        <tr><td class="label">Monthly installment</td><td>{{.MonthlyInstallment}}</td></tr>
        <tr><td class="label">Tenure</td><td>{{.Tenure}} months</td></tr>
        <tr><td class="label">Term</td><td>{{.StartDate}} to {{.EndDate}}</td></tr>
    </table>
</body>
</html>`))

func renderLoanApprovedHTML(params LoanApprovedParams) (string, error) {
	var buf bytes.Buffer
	if err := loanApprovedTemplate.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderLoanApprovedText(params LoanApprovedParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loan %d approved for %s (customer %d).\n\n", params.LoanID, params.CustomerName, params.CustomerID)
	fmt.Fprintf(&b, "Loan amount: %s\n", params.LoanAmount)
	fmt.Fprintf(&b, "Interest rate: %s%%\n", params.InterestRate)
	fmt.Fprintf(&b, "Monthly installment: %s\n", params.MonthlyInstallment)
	fmt.Fprintf(&b, "Tenure: %d months\n", params.Tenure)
	fmt.Fprintf(&b, "Term: %s to %s\n", params.StartDate, params.EndDate)
	return b.String()
}
