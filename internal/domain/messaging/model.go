package messaging

import (
	"sort"
	"strings"
	"time"
)

type Conversation struct {
	ID                   string         `firestore:"-" json:"id"`
	Participants         []string       `firestore:"participants" json:"participants"`
	PairKey              string         `firestore:"pairKey,omitempty" json:"-"`
	LastMessage          string         `firestore:"lastMessage" json:"lastMessage"`
	LastMessageTimestamp time.Time      `firestore:"lastMessageTimestamp" json:"lastMessageTimestamp"`
	LastMessageSenderID  string         `firestore:"lastMessageSenderId" json:"lastMessageSenderId"`
	UnreadCounts         map[string]int `firestore:"unreadCounts" json:"unreadCounts"`
	CreatedAt            time.Time      `firestore:"createdAt" json:"createdAt"`
}

func (c Conversation) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

func (c Conversation) UnreadFor(uid string) int {
	return c.UnreadCounts[uid]
}

// Apply returns the conversation as it looks after msg was sent: the last
// message snapshot moves and every other participant gains one unread.
func (c Conversation) Apply(msg Message) Conversation {
	next := c
	next.LastMessage = msg.Preview()
	next.LastMessageTimestamp = msg.Timestamp
	next.LastMessageSenderID = msg.SenderID
	next.UnreadCounts = make(map[string]int, len(c.Participants))
	for _, p := range c.Participants {
		n := c.UnreadCounts[p]
		if p != msg.SenderID {
			n++
		}
		next.UnreadCounts[p] = n
	}
	return next
}

// MarkedRead returns the conversation with uid's counter at zero.
func (c Conversation) MarkedRead(uid string) Conversation {
	next := c
	next.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		next.UnreadCounts[k] = v
	}
	next.UnreadCounts[uid] = 0
	return next
}

// PairKey identifies the direct conversation between two users regardless
// of who started it.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// SortByLastMessage orders newest activity first.
func SortByLastMessage(cs []Conversation) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].LastMessageTimestamp.After(cs[j].LastMessageTimestamp)
	})
}

func TotalUnread(cs []Conversation, uid string) int {
	n := 0
	for _, c := range cs {
		n += c.UnreadFor(uid)
	}
	return n
}

type Message struct {
	ID             string          `firestore:"-" json:"id"`
	ConversationID string          `firestore:"conversationId" json:"conversationId"`
	SenderID       string          `firestore:"senderId" json:"senderId"`
	Content        string          `firestore:"content" json:"content"`
	Timestamp      time.Time       `firestore:"timestamp" json:"timestamp"`
	ReadBy         map[string]bool `firestore:"readBy" json:"readBy"`
	MediaURL       string          `firestore:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
}

// IsReadBy is true only when uid's flag is present and set.
func (m Message) IsReadBy(uid string) bool {
	return m.ReadBy[uid]
}

func (m Message) Preview() string {
	if m.Content == "" && m.MediaURL != "" {
		return "Sent a photo"
	}
	return m.Content
}

type SendInput struct {
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

func (in *SendInput) Trim() {
	in.Content = strings.TrimSpace(in.Content)
	in.MediaURL = strings.TrimSpace(in.MediaURL)
}

func (in SendInput) Empty() bool {
	return in.Content == "" && in.MediaURL == ""
}

type StartInput struct {
	ParticipantID string `json:"participantId"`
}

func (in *StartInput) Trim() {
	in.ParticipantID = strings.TrimSpace(in.ParticipantID)
}
