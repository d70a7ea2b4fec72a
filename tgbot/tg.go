package tgbot

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"todooh/reminder"
	"todooh/schedule"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	txtHelpMessage = `I can set a reminder for you and periodically notify you of it after the time has passed.
To set a reminder you can use /remindme <day(s) of alarm> <alarm time> <interval> minutes <name of reminder>
To stop the reminder, just type /done <name of reminder>.
Example: /remindme Sundays 15:00 5 minutes Create a new ToDooh!`
	txtUnknownCommand     = "I don't know this command. Use /help to see what I can do"
	txtReminderCreated    = "Your reminder has been created!"
	txtReminderDuplicate  = "You already have a reminder with that name!"
	txtReminderNotFound   = "I couldn't find a reminder with that name!"
	txtGoodJob            = "Good job!"
	txtForgotReminderName = "You forgot to type the reminder name!"
	txtNoActiveReminders  = "You have no active reminders!"
	txtActiveReminders    = "These are your active reminders:\n"
	txtRemindMeUsage      = "That didn't look right. Use /remindme <day(s)> <HH:MM> <interval> minutes <name>"
	txtCreateFailed       = "I couldn't create the reminder. Please try again later"
	txtCompleteFailed     = "I couldn't complete the reminder. Please try again later"

	fmtWelcomeMessage = "This bot will help you set a reminder and notify you periodically to do it until it has been done. " +
		"When done, simply type /done <name of reminder>\n\nAll reminder times are in the %s timezone."
)

// reMinutesToken splits a /remindme command at the first "minute(s)" word;
// everything after it is the reminder name, spacing preserved.
var reMinutesToken = regexp.MustCompile(`(?i)\bminutes? `)

const (
	cmdStart     = "start"
	cmdHelp      = "help"
	cmdRemindMe  = "remindme"
	cmdReminders = "reminders"
	cmdDone      = "done"
)

// TBot wires the Telegram transport to the reminder scheduler. It owns no
// reminder state: commands go straight to the Scheduler, notifications
// come back through SendReminder.
type TBot struct {
	Bot           *tg.BotAPI
	Scheduler     *reminder.Scheduler // set after construction, once the scheduler has the notifier
	Logger        *zap.SugaredLogger
	Timezone      string
	RetryDelay    time.Duration
	RetryAttempts int
}

func NewTBot(tgtoken, timezone string, l *zap.SugaredLogger) (*TBot, error) {
	b, err := tg.NewBotAPI(tgtoken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Telegram Bot")
	}

	b.Debug = false

	l.Infof("authorized on account %q (%q, %d)", b.Self.FirstName, b.Self.UserName, b.Self.ID)

	return &TBot{
		Bot:           b,
		Logger:        l,
		Timezone:      timezone,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}, nil
}

func (b *TBot) Run() {
	uCfg := tg.NewUpdate(0)
	uCfg.Timeout = 60

	for u := range b.Bot.GetUpdatesChan(uCfg) {
		if u.Message != nil && u.Message.IsCommand() {
			go b.HandleCommand(u.Message)
		}
	}
}

func (b *TBot) HandleCommand(msg *tg.Message) {
	usr := msg.From.ID

	switch msg.Command() {
	case cmdStart:
		b.SendMessage(usr, fmt.Sprintf(fmtWelcomeMessage, b.Timezone), -1)

	case cmdHelp:
		b.SendMessage(usr, txtHelpMessage, -1)

	case cmdRemindMe:
		b.remindMe(usr, msg)

	case cmdReminders:
		names := b.Scheduler.List(usr)
		if len(names) == 0 {
			b.SendMessage(usr, txtNoActiveReminders, -1)
			return
		}
		b.SendMessage(usr, txtActiveReminders+"\n"+strings.Join(names, "\n"), -1)

	case cmdDone:
		b.done(usr, msg)

	default:
		b.SendMessage(usr, txtUnknownCommand, msg.MessageID)
	}
}

func (b *TBot) remindMe(usr int64, msg *tg.Message) {
	day, at, interval, name, err := splitRemindMe(msg.CommandArguments())
	if err != nil {
		b.SendMessage(usr, txtRemindMeUsage, msg.MessageID)
		return
	}

	spec, err := schedule.Parse(day, at, interval, name)
	if err != nil {
		// validation failures are user-correctable, report them verbatim
		var verr *schedule.ValidationError
		if errors.As(err, &verr) {
			b.SendMessage(usr, verr.Reason, msg.MessageID)
			return
		}
		b.Logger.Errorw("failed parsing reminder", "err", err)
		b.SendMessage(usr, txtRemindMeUsage, msg.MessageID)
		return
	}

	switch err := b.Scheduler.Create(usr, name, spec); {
	case errors.Is(err, reminder.ErrDuplicate):
		b.SendMessage(usr, txtReminderDuplicate, msg.MessageID)
	case err != nil:
		b.Logger.Errorw("failed creating reminder", "err", err)
		b.SendMessage(usr, txtCreateFailed, msg.MessageID)
	default:
		b.SendMessage(usr, txtReminderCreated, -1)
	}
}

func (b *TBot) done(usr int64, msg *tg.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.SendMessage(usr, txtForgotReminderName, msg.MessageID)
		return
	}

	err := b.Scheduler.Complete(usr, name)
	if err != nil && !errors.Is(err, reminder.ErrNotFound) {
		b.Logger.Errorw("failed completing reminder", "err", err)
	}
	b.SendMessage(usr, completionReply(err), msg.MessageID)
}

// completionReply picks the /done response for the outcome of a completion.
func completionReply(err error) string {
	switch {
	case err == nil:
		return txtGoodJob
	case errors.Is(err, reminder.ErrNotFound):
		return txtReminderNotFound
	default:
		return txtCompleteFailed
	}
}

// splitRemindMe splits "<day> <time> <interval> minutes <name>" into its
// raw tokens. Validation of the tokens themselves is the parser's job.
func splitRemindMe(args string) (day, at, interval, name string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 4 {
		return "", "", "", "", errors.New("not enough arguments")
	}

	loc := reMinutesToken.FindStringIndex(args)
	if loc != nil {
		name = args[loc[1]:]
	}

	return fields[0], fields[1], fields[2], name, nil
}

// SendReminder is the Notifier the scheduler calls on every fire.
func (b *TBot) SendReminder(usr int64, text string) {
	b.SendMessage(usr, text, -1)
}

func (b *TBot) SendMessage(usr int64, txt string, replyTo int) error {
	m := tg.NewMessage(usr, txt)
	if replyTo >= 0 {
		m.ReplyToMessageID = replyTo
	}
	m.DisableWebPagePreview = true

	var err error
	robustExecute(b.RetryAttempts, b.RetryDelay, func() bool {
		_, err = b.Bot.Request(m)
		return err == nil
	})
	if err != nil {
		b.Logger.Errorw("failed sending message", "usr", usr, "err", err)
	}
	return err
}

func robustExecute(n int, d time.Duration, f func() bool) bool {
	for i := 0; i < n; i++ {
		if f() {
			return true
		}
		time.Sleep(d)
	}
	return false
}
