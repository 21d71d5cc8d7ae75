package feed

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"time"

	"trade-tracker-go/internal/models"
	"trade-tracker-go/internal/tracker"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Reconnection backoff bounds.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	readTimeout    = 90 * time.Second
)

var tradeTitlePattern = regexp.MustCompile(`^Trading With: (.*)$`)

// Event is one decoded frame from the game-event relay.
type Event struct {
	Type string `json:"type"`

	// windowOpened / windowClosed
	Group int `json:"group,omitempty"`

	// containerChanged
	ContainerID int    `json:"containerId,omitempty"`
	Items       []Item `json:"items,omitempty"`

	// chatMessage
	ChatType  string `json:"chatType,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`

	// widgetText (the trade window's title line)
	WidgetText string `json:"widgetText,omitempty"`

	// login
	AccountHash int64  `json:"accountHash,omitempty"`
	PlayerName  string `json:"playerName,omitempty"`
	ProfileType string `json:"profileType,omitempty"`

	// configChanged
	ConfigGroup string `json:"configGroup,omitempty"`
	ConfigKey   string `json:"configKey,omitempty"`
}

// Item is one item stack inside a containerChanged frame.
type Item struct {
	ID       int   `json:"id"`
	Quantity int64 `json:"quantity"`
}

// Handlers are the tracker entry points the feed drives. Every call is made
// on the tracker loop, never from the feed's read goroutine.
type Handlers struct {
	WindowOpened     func(group int)
	WindowClosed     func(group int)
	ContainerChanged func(containerID int, items []*models.ItemStack)
	ChatMessage      func(chatType tracker.ChatType, text string, timestamp int64)
	Login            func(profile models.ProfileIdentity)
	ConfigChanged    func(group, key string)
}

// Listener maintains the websocket connection to the game-event relay and
// translates frames into tracker inputs. It also holds the last seen trade
// window title so the tracker can read the counterparty's name; it therefore
// implements tracker.WidgetReader.
type Listener struct {
	url      string
	logger   *zap.Logger
	invoke   func(func())
	handlers Handlers

	mu           sync.RWMutex
	counterparty string
}

var _ tracker.WidgetReader = (*Listener)(nil)

// NewListener creates a feed listener. Start must be called to connect.
func NewListener(url string, logger *zap.Logger, invoke func(func()), handlers Handlers) *Listener {
	return &Listener{
		url:      url,
		logger:   logger.Named("feed"),
		invoke:   invoke,
		handlers: handlers,
	}
}

// TradeCounterpartyName returns the name parsed from the trade window's
// title line, once the relay has delivered it.
func (l *Listener) TradeCounterpartyName() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counterparty, l.counterparty != ""
}

// Start runs the connect/read/reconnect loop on a new goroutine.
func (l *Listener) Start(ctx context.Context) {
	go l.runLoop(ctx)
}

func (l *Listener) runLoop(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
		if err != nil {
			l.logger.Error("Feed connect failed", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		l.logger.Info("Feed connected", zap.String("url", l.url))
		backoff = initialBackoff

		if err := l.readLoop(ctx, conn); err != nil {
			l.logger.Warn("Feed read error", zap.Error(err))
		}
		conn.Close()
	}
}

func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event Event
		if err := json.Unmarshal(frame, &event); err != nil {
			l.logger.Warn("Dropping malformed feed frame", zap.Error(err))
			continue
		}
		l.dispatch(event)
	}
}

// dispatch maps one frame onto a tracker entry point and posts it to the
// loop. Unknown frame types are ignored so relay upgrades stay compatible.
func (l *Listener) dispatch(event Event) {
	switch event.Type {
	case "windowOpened":
		if event.Group == tracker.GroupTradeWindow {
			// A fresh trade window invalidates the previous title.
			l.setCounterparty("")
		}
		if l.handlers.WindowOpened != nil {
			l.invoke(func() { l.handlers.WindowOpened(event.Group) })
		}
	case "windowClosed":
		if l.handlers.WindowClosed != nil {
			l.invoke(func() { l.handlers.WindowClosed(event.Group) })
		}
	case "containerChanged":
		if l.handlers.ContainerChanged == nil {
			return
		}
		items := make([]*models.ItemStack, 0, len(event.Items))
		for _, item := range event.Items {
			items = append(items, models.NewItemStack(item.ID, item.Quantity))
		}
		l.invoke(func() { l.handlers.ContainerChanged(event.ContainerID, items) })
	case "chatMessage":
		if l.handlers.ChatMessage == nil {
			return
		}
		chatType := parseChatType(event.ChatType)
		timestamp := event.Timestamp
		if timestamp == 0 {
			timestamp = time.Now().Unix()
		}
		l.invoke(func() { l.handlers.ChatMessage(chatType, event.Text, timestamp) })
	case "widgetText":
		if match := tradeTitlePattern.FindStringSubmatch(event.WidgetText); match != nil {
			l.setCounterparty(match[1])
		}
	case "login":
		if l.handlers.Login == nil {
			return
		}
		profile := models.ProfileIdentity{
			AccountHash: event.AccountHash,
			DisplayName: event.PlayerName,
			Type:        parseProfileType(event.ProfileType),
		}
		l.invoke(func() { l.handlers.Login(profile) })
	case "configChanged":
		if l.handlers.ConfigChanged != nil {
			l.invoke(func() { l.handlers.ConfigChanged(event.ConfigGroup, event.ConfigKey) })
		}
	}
}

func (l *Listener) setCounterparty(name string) {
	l.mu.Lock()
	l.counterparty = name
	l.mu.Unlock()
}

func parseChatType(chatType string) tracker.ChatType {
	switch chatType {
	case "trade":
		return tracker.ChatTypeTrade
	case "public":
		return tracker.ChatTypePublic
	}
	return tracker.ChatTypeGame
}

func parseProfileType(profileType string) models.ProfileType {
	switch models.ProfileType(profileType) {
	case models.ProfileBeta, models.ProfileDeadman, models.ProfileSeasonal:
		return models.ProfileType(profileType)
	}
	return models.ProfileStandard
}
