package notify

import (
	"fmt"
	"html"
	"time"

	"github.com/diagnosis/condo-bookings/internal/platform/mailer"
)

const (
	qrFilename   = "booking-qr.jpeg"
	stayLayout   = "Mon, 02 Jan 2006 15:04 MST"
	supportNotes = "If you did not make this request you can ignore this email."
)

func stay(j Job) string {
	return fmt.Sprintf("%s to %s",
		j.Booking.StartDateTime.UTC().Format(stayLayout),
		j.Booking.EndDateTime.UTC().Format(stayLayout))
}

func wrapHTML(name, body string) string {
	return fmt.Sprintf(`<p>Hi %s,</p>%s<p style="color:#777">%s</p>`,
		html.EscapeString(name), body, supportNotes)
}

// buildMessage renders the guest email for j. qr is the rendered QR image for
// approvals and may be nil when rendering failed.
func buildMessage(j Job, qr []byte) *mailer.Message {
	b := j.Booking
	condo := html.EscapeString(j.CondoName)
	msg := &mailer.Message{To: b.Email, ToName: b.FullName}

	switch j.Kind {
	case KindBookingReceived:
		msg.Subject = fmt.Sprintf("We received your booking request for %s", j.CondoName)
		msg.Text = fmt.Sprintf("Booking #%d for %s (%s) is awaiting the owner's approval.", b.ID, j.CondoName, stay(j))
		msg.HTML = wrapHTML(b.FullName, fmt.Sprintf(
			`<p>Your booking <b>#%d</b> for <b>%s</b> (%s) is awaiting the owner's approval.</p>`,
			b.ID, condo, stay(j)))

	case KindBookingApproved:
		msg.Subject = fmt.Sprintf("Your booking at %s is approved", j.CondoName)
		msg.Text = fmt.Sprintf("Booking #%d for %s (%s) is approved.\nShow this code at the front desk: %s",
			b.ID, j.CondoName, stay(j), j.QRCode)
		img := ""
		if len(qr) > 0 {
			img = fmt.Sprintf(`<p><img src="cid:%s" alt="check-in QR code"/></p>`, qrFilename)
			msg.Attachments = append(msg.Attachments, mailer.Attachment{
				Filename: qrFilename, ContentType: "image/jpeg", Data: qr, Inline: true,
			})
		}
		msg.HTML = wrapHTML(b.FullName, fmt.Sprintf(
			`<p>Your booking <b>#%d</b> for <b>%s</b> (%s) is approved.</p><p>Show this QR code at the front desk.</p>%s<p><code>%s</code></p>`,
			b.ID, condo, stay(j), img, html.EscapeString(j.QRCode)))

	case KindBookingRejected:
		msg.Subject = fmt.Sprintf("Your booking at %s was not approved", j.CondoName)
		reason := j.Reason
		if reason == "" {
			reason = "No reason was given."
		}
		msg.Text = fmt.Sprintf("Booking #%d for %s (%s) was rejected. %s", b.ID, j.CondoName, stay(j), reason)
		msg.HTML = wrapHTML(b.FullName, fmt.Sprintf(
			`<p>Your booking <b>#%d</b> for <b>%s</b> (%s) was not approved.</p><p>%s</p>`,
			b.ID, condo, stay(j), html.EscapeString(reason)))

	case KindBookingCancelled:
		msg.Subject = fmt.Sprintf("Your booking request for %s expired", j.CondoName)
		msg.Text = fmt.Sprintf("Booking #%d for %s (%s) was cancelled because it was not approved before arrival.", b.ID, j.CondoName, stay(j))
		msg.HTML = wrapHTML(b.FullName, fmt.Sprintf(
			`<p>Your booking <b>#%d</b> for <b>%s</b> (%s) was cancelled because it was not approved before arrival.</p>`,
			b.ID, condo, stay(j)))

	case KindCheckedIn:
		msg.Subject = fmt.Sprintf("Welcome to %s", j.CondoName)
		msg.Text = fmt.Sprintf("You are checked in to %s. Check-out is due %s.", j.CondoName, b.EndDateTime.UTC().Format(stayLayout))
		msg.HTML = wrapHTML(b.FullName, fmt.Sprintf(
			`<p>You are checked in to <b>%s</b>. Check-out is due %s.</p>`,
			condo, b.EndDateTime.UTC().Format(stayLayout)))

	case KindCheckedOut:
		msg.Subject = fmt.Sprintf("Thanks for staying at %s", j.CondoName)
		msg.Text = fmt.Sprintf("You checked out of %s on %s.", j.CondoName, time.Now().UTC().Format(stayLayout))
		if b.CheckedOutAt != nil {
			msg.Text = fmt.Sprintf("You checked out of %s on %s.", j.CondoName, b.CheckedOutAt.UTC().Format(stayLayout))
		}
		msg.HTML = wrapHTML(b.FullName, "<p>"+html.EscapeString(msg.Text)+"</p>")

	default:
		return nil
	}
	return msg
}
