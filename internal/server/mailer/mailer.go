// Package mailer renders and delivers notification emails.
//
// Delivery is a single attempt per call. Callers decide whether a failure
// matters; every failure wraps common.ErrDispatch.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/memorylane/internal/common"
)

// Dispatcher delivers one HTML email.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Config is everything the mailer needs. It is built once from the server
// config and passed in explicitly.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration

	// AppBaseURL is used to build capsule links: <AppBaseURL>/capsules/<id>.
	AppBaseURL string
	// InvitationLink is where invitees sign up. The invited email is
	// appended as the "email" query parameter.
	InvitationLink string
}

// Notifier renders the invitation and unlock emails and hands them to a
// Dispatcher with a bounded timeout.
type Notifier struct {
	dispatcher Dispatcher
	templates  *Templates
	cfg        Config
}

func NewNotifier(d Dispatcher, t *Templates, cfg Config) *Notifier {
	return &Notifier{dispatcher: d, templates: t, cfg: cfg}
}

func (n *Notifier) SendInvitation(ctx context.Context, to, capsuleTitle, inviterName string) error {
	msg, err := n.templates.Invitation(InvitationData{
		Title:       capsuleTitle,
		InviterName: inviterName,
		Link:        n.invitationLink(to),
	})
	if err != nil {
		return fmt.Errorf("%w: render invitation: %v", common.ErrDispatch, err)
	}
	return n.send(ctx, to, msg)
}

func (n *Notifier) SendUnlock(ctx context.Context, to, capsuleID, capsuleTitle string) error {
	msg, err := n.templates.Unlock(UnlockData{
		Title: capsuleTitle,
		Link:  n.CapsuleLink(capsuleID),
	})
	if err != nil {
		return fmt.Errorf("%w: render unlock: %v", common.ErrDispatch, err)
	}
	return n.send(ctx, to, msg)
}

func (n *Notifier) send(ctx context.Context, to string, msg Message) error {
	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}
	if err := n.dispatcher.Send(ctx, to, msg.Subject, msg.HTML); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrDispatch, to, err)
	}
	return nil
}

// CapsuleLink returns the public URL of a capsule page.
func (n *Notifier) CapsuleLink(capsuleID string) string {
	return strings.TrimRight(n.cfg.AppBaseURL, "/") + "/capsules/" + url.PathEscape(capsuleID)
}

func (n *Notifier) invitationLink(email string) string {
	u, err := url.Parse(n.cfg.InvitationLink)
	if err != nil {
		return n.cfg.InvitationLink
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String()
}
