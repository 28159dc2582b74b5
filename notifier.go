package sqlloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // for the default notification time zone

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"golang.org/x/xerrors"
)

// Notifier notifies results for each load.
type Notifier interface {
	Notify(context.Context, *Result) error
}

// Result is a result for each load.
type Result struct {
	LoadID string
	Table  string
	Rows   int
	Schema TableSchema
	Err    error

	StartedAt  time.Time
	FinishedAt time.Time
}

// DefaultNotificationTimeZone is the zone of timestamps in job notifications.
const DefaultNotificationTimeZone = "America/Chicago"

const notificationTimeLayout = "2006-01-02 03:04:05 PM"

// SlackNotifier posts job notifications to a Slack channel.
type SlackNotifier struct {
	// Token is the OAuth token of the Slack app.
	Token string

	// Channel is the default channel ID.
	Channel string

	// Script names the job in messages. Defaults to the executable name.
	Script string

	// Location of timestamps. Defaults to DefaultNotificationTimeZone.
	Location *time.Location

	// Test marks every notification as a test job.
	Test bool

	// APIURL overrides the Slack API endpoint, e.g. "https://slack.com/api/".
	APIURL string

	HTTPClient *http.Client

	now func() time.Time
}

// JobNotification describes the outcome of a job.
type JobNotification struct {
	Successful bool

	// Channel overrides the default channel when not empty.
	Channel string

	// Err is the cause of a failure.
	Err error

	Test bool
}

// Notify notifies results of a load to the default channel.
func (n *SlackNotifier) Notify(ctx context.Context, r *Result) error {
	return n.PostJobNotification(ctx, JobNotification{
		Successful: r.Err == nil,
		Err:        r.Err,
	})
}

// PostJobNotification posts a job completion message.
func (n *SlackNotifier) PostJobNotification(ctx context.Context, j JobNotification) error {
	l := log.Ctx(ctx)

	channel := n.Channel
	if j.Channel != "" {
		channel = j.Channel
	}
	if channel == "" {
		return xerrors.New("slack channel is not configured")
	}

	text := n.jobText(j)
	l.Debug().Str("channel", channel).Msgf("text = %s", text)

	opts := []slack.Option{}
	if n.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(n.APIURL))
	}
	if n.HTTPClient != nil {
		opts = append(opts, slack.OptionHTTPClient(n.HTTPClient))
	}

	c := slack.New(n.Token, opts...)
	if _, _, err := c.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return xerrors.Errorf("slack postMessage failed: %w", err)
	}

	return nil
}

func (n *SlackNotifier) jobText(j JobNotification) string {
	script := n.Script
	if script == "" {
		script = filepath.Base(os.Args[0])
	}

	now := time.Now
	if n.now != nil {
		now = n.now
	}
	ts := now().In(n.location()).Format(notificationTimeLayout)

	test := j.Test || n.Test

	if j.Successful {
		text := fmt.Sprintf(":rocket:  *SUCCESSFUL JOB*  :rocket:\n\nScript: `%s`\nCompleted at: `%s`", script, ts)
		if test {
			return "[TEST JOB]\n\n" + text
		}
		return text
	}

	text := fmt.Sprintf(":sadbutstillcool:  *FAILED JOB*  :sad_yeehaw:\n\nScript:  `%s`\nFailed at: `%s` with the following error: \n```%v```", script, ts, j.Err)
	if test {
		return "[TEST JOB]\n\n" + text
	}
	return "<!here>  " + text
}

func (n *SlackNotifier) location() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	loc, err := time.LoadLocation(DefaultNotificationTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
