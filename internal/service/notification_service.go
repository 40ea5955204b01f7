package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
	"github.com/noah-isme/complaint-desk-api/pkg/mailer"
)

const (
	jobUrgentComplaint   = "complaint.urgent"
	jobComplaintResolved = "complaint.resolved"
)

type jobQueue interface {
	TryEnqueue(job jobs.Job) error
}

// NotificationService e-mails staff about urgent and resolved complaints.
// A service without queue or recipients drops every event.
type NotificationService struct {
	queue      jobQueue
	sender     mailer.Sender
	recipients []string
	logger     *zap.Logger
}

// NewNotificationService constructs a NotificationService. Call Handle from the queue's worker.
func NewNotificationService(sender mailer.Sender, recipients []string, logger *zap.Logger) *NotificationService {
	if sender == nil {
		sender = mailer.Noop{}
	}
	return &NotificationService{sender: sender, recipients: recipients, logger: defaultLogger(logger).Named("notifications")}
}

// AttachQueue sets the queue events are published to.
func (s *NotificationService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// Enabled reports whether events are delivered.
func (s *NotificationService) Enabled() bool {
	return s != nil && s.queue != nil && len(s.recipients) > 0
}

// ComplaintCreated alerts staff when an urgent complaint arrives.
func (s *NotificationService) ComplaintCreated(_ context.Context, complaint *models.Complaint) {
	if complaint == nil || complaint.Urgency != models.UrgencyUrgent {
		return
	}
	s.publish(jobUrgentComplaint, complaint)
}

// ComplaintResolved tells staff a complaint was closed.
func (s *NotificationService) ComplaintResolved(_ context.Context, complaint *models.Complaint) {
	if complaint == nil {
		return
	}
	s.publish(jobComplaintResolved, complaint)
}

func (s *NotificationService) publish(kind string, complaint *models.Complaint) {
	if !s.Enabled() {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: complaint.Clone()}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Warn("notification dropped", zap.String("type", kind), zap.Int64("complaint_id", complaint.ID), zap.Error(err))
	}
}

// Handle renders and sends a queued notification.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	complaint, ok := job.Payload.(*models.Complaint)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	msg := mailer.Message{To: s.recipients}
	switch job.Type {
	case jobUrgentComplaint:
		msg.Subject = fmt.Sprintf("[Urgent] Complaint #%d: %s", complaint.ID, complaint.Title)
		msg.HTML = renderComplaintMail("A new urgent complaint was submitted.", complaint)
	case jobComplaintResolved:
		msg.Subject = fmt.Sprintf("[Resolved] Complaint #%d: %s", complaint.ID, complaint.Title)
		msg.HTML = renderComplaintMail("The complaint below was marked as resolved.", complaint)
	default:
		s.logger.Error("unknown notification type", zap.String("type", job.Type))
		return nil
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("notification sent", zap.String("type", job.Type), zap.Int64("complaint_id", complaint.ID), zap.Int("recipients", len(msg.To)))
	return nil
}

func renderComplaintMail(lead string, c *models.Complaint) string {
	var b strings.Builder
	b.WriteString("<p>" + html.EscapeString(lead) + "</p><table>")
	row := func(label, value string) {
		b.WriteString("<tr><th align=\"left\">" + label + "</th><td>" + html.EscapeString(value) + "</td></tr>")
	}
	row("ID", fmt.Sprint(c.ID))
	row("Title", c.Title)
	row("Category", string(c.Category))
	row("Urgency", string(c.Urgency))
	row("Status", string(c.Status))
	row("Submitted by", c.CreatedBy)
	row("Submitted at", c.CreatedAt.Format("2006-01-02 15:04"))
	b.WriteString("</table><p>" + html.EscapeString(c.Content) + "</p>")
	if n := len(c.History); n > 0 && c.History[n-1].Note != "" {
		b.WriteString("<p><em>" + html.EscapeString(c.History[n-1].Note) + "</em></p>")
	}
	return b.String()
}
