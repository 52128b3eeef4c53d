// Package notify sends operator messages to chat robots.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/xyths/fxbot/types"
	"github.com/xyths/hs"
	"github.com/xyths/hs/broadcast"
	"go.uber.org/multierr"
)

type Notifier interface {
	Send(text string) error
}

// Multi fans a message out to every notifier.
type Multi []Notifier

func (m Multi) Send(text string) (err error) {
	for _, n := range m {
		err = multierr.Append(err, n.Send(text))
	}
	return
}

// Robot is the part of broadcast.Broadcaster used here.
type Robot interface {
	SendText(msg string) error
}

// Robots prefixes messages with time, labels and symbol, then sends them to the hs robots.
type Robots struct {
	robots []Robot
	labels []string
	symbol string
	loc    *time.Location
	now    func() time.Time
}

func NewRobots(confs []hs.BroadcastConf, loc *time.Location, symbol string, labels ...string) *Robots {
	r := &Robots{
		labels: labels,
		symbol: symbol,
		loc:    loc,
		now:    time.Now,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	for _, conf := range confs {
		r.Add(broadcast.New(conf))
	}
	return r
}

func (r *Robots) Add(robot Robot) {
	r.robots = append(r.robots, robot)
}

func (r *Robots) Len() int {
	return len(r.robots)
}

func (r *Robots) Send(text string) (err error) {
	timeStr := r.now().In(r.loc).Format(types.TimeLayout)
	msg := fmt.Sprintf("%s [%s] [%s] %s", timeStr, strings.Join(r.labels, "] ["), r.symbol, text)
	for _, robot := range r.robots {
		err = multierr.Append(err, robot.SendText(msg))
	}
	return
}

// Discard drops every message.
type Discard struct{}

func (Discard) Send(string) error { return nil }
