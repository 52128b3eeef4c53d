package notify

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const telegramHost = "https://api.telegram.org"

type Telegram struct {
	Token   string
	ChatID  string
	BaseURL string

	hc *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		Token:   token,
		ChatID:  chatID,
		BaseURL: telegramHost,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts text to the chat through the Bot API sendMessage method.
func (t *Telegram) Send(text string) error {
	form := url.Values{}
	form.Set("chat_id", t.ChatID)
	form.Set("text", text)
	u := strings.TrimRight(t.BaseURL, "/") + "/bot" + t.Token + "/sendMessage"
	resp, err := t.hc.PostForm(u, form)
	if err != nil {
		// the url carries the token
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return errors.Wrap(err, "telegram send")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "telegram read")
	}
	var r telegramResponse
	_ = json.Unmarshal(data, &r)
	if resp.StatusCode != http.StatusOK || !r.OK {
		return errors.Errorf("telegram status %d: %s", resp.StatusCode, r.Description)
	}
	return nil
}
