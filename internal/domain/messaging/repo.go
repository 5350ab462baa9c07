package messaging

import (
	"context"
	"fmt"

	"cragline/backend/internal/listen"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Repo interface {
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	FindDirect(ctx context.Context, pairKey string) (*Conversation, error)
	CreateConversation(ctx context.Context, c Conversation) (Conversation, error)
	ListConversations(ctx context.Context, uid string, limit int) ([]Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	AppendMessage(ctx context.Context, conv Conversation, msg Message) (Message, error)
	MarkRead(ctx context.Context, conversationID, uid string) error
	WatchConversations(ctx context.Context, uid string, limit int, fn func([]Conversation), onErr func(error)) *listen.Subscription
	WatchMessages(ctx context.Context, conversationID string, limit int, fn func([]Message), onErr func(error)) *listen.Subscription
}

// Firestore batches are capped at 500 writes.
const batchSize = 450

type FirestoreRepo struct {
	fs *firestore.Client
}

func NewFirestoreRepo(fs *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{fs: fs}
}

func (r *FirestoreRepo) conversations() *firestore.CollectionRef {
	return r.fs.Collection("conversations")
}

func (r *FirestoreRepo) messages(conversationID string) *firestore.CollectionRef {
	return r.conversations().Doc(conversationID).Collection("messages")
}

func (r *FirestoreRepo) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	doc, err := r.conversations().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	c, err := decodeConversation(doc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *FirestoreRepo) FindDirect(ctx context.Context, pairKey string) (*Conversation, error) {
	it := r.conversations().Where("pairKey", "==", pairKey).Limit(1).Documents(ctx)
	defer it.Stop()
	doc, err := it.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("%w: conversation", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	c, err := decodeConversation(doc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *FirestoreRepo) CreateConversation(ctx context.Context, c Conversation) (Conversation, error) {
	ref := r.conversations().NewDoc()
	if _, err := ref.Create(ctx, c); err != nil {
		return Conversation{}, fmt.Errorf("failed to create conversation: %w", err)
	}
	c.ID = ref.ID
	return c, nil
}

func (r *FirestoreRepo) conversationsQuery(uid string, limit int) firestore.Query {
	return r.conversations().
		Where("participants", "array-contains", uid).
		OrderBy("lastMessageTimestamp", firestore.Desc).
		Limit(limit)
}

func (r *FirestoreRepo) ListConversations(ctx context.Context, uid string, limit int) ([]Conversation, error) {
	it := r.conversationsQuery(uid, limit).Documents(ctx)
	defer it.Stop()

	out := []Conversation{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}
		c, err := decodeConversation(doc)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *FirestoreRepo) messagesQuery(conversationID string, limit int) firestore.Query {
	return r.messages(conversationID).OrderBy("timestamp", firestore.Desc).Limit(limit)
}

// ListMessages returns the newest limit messages, oldest first.
func (r *FirestoreRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	it := r.messagesQuery(conversationID, limit).Documents(ctx)
	defer it.Stop()

	out := []Message{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		m, err := decodeMessage(doc)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	reverse(out)
	return out, nil
}

// AppendMessage writes msg and the conversation snapshot in one batch.
// Unread counters use server-side increments so concurrent senders do not
// lose updates.
func (r *FirestoreRepo) AppendMessage(ctx context.Context, conv Conversation, msg Message) (Message, error) {
	convRef := r.conversations().Doc(conv.ID)
	msgRef := r.messages(conv.ID).NewDoc()

	updates := []firestore.Update{
		{Path: "lastMessage", Value: msg.Preview()},
		{Path: "lastMessageTimestamp", Value: msg.Timestamp},
		{Path: "lastMessageSenderId", Value: msg.SenderID},
	}
	for _, p := range conv.Participants {
		if p == msg.SenderID {
			continue
		}
		updates = append(updates, firestore.Update{
			FieldPath: firestore.FieldPath{"unreadCounts", p},
			Value:     firestore.Increment(1),
		})
	}

	batch := r.fs.Batch()
	batch.Create(msgRef, msg)
	batch.Update(convRef, updates)
	if _, err := batch.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("failed to send message: %w", err)
	}
	msg.ID = msgRef.ID
	return msg, nil
}

// MarkRead zeroes uid's counter and flags the recent messages uid has not
// read yet.
func (r *FirestoreRepo) MarkRead(ctx context.Context, conversationID, uid string) error {
	convRef := r.conversations().Doc(conversationID)
	it := r.messagesQuery(conversationID, batchSize-1).Documents(ctx)
	defer it.Stop()

	batch := r.fs.Batch()
	batch.Update(convRef, []firestore.Update{{FieldPath: firestore.FieldPath{"unreadCounts", uid}, Value: 0}})
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}
		m, err := decodeMessage(doc)
		if err != nil || m.SenderID == uid || m.IsReadBy(uid) {
			continue
		}
		batch.Update(doc.Ref, []firestore.Update{{FieldPath: firestore.FieldPath{"readBy", uid}, Value: true}})
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return nil
}

func (r *FirestoreRepo) WatchConversations(ctx context.Context, uid string, limit int, fn func([]Conversation), onErr func(error)) *listen.Subscription {
	return listen.Query(ctx, r.conversationsQuery(uid, limit), decodeConversation, fn, onErr)
}

func (r *FirestoreRepo) WatchMessages(ctx context.Context, conversationID string, limit int, fn func([]Message), onErr func(error)) *listen.Subscription {
	return listen.Query(ctx, r.messagesQuery(conversationID, limit), decodeMessage, func(ms []Message) {
		reverse(ms)
		fn(ms)
	}, onErr)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (Conversation, error) {
	var c Conversation
	if err := doc.DataTo(&c); err != nil {
		return Conversation{}, fmt.Errorf("failed to decode conversation: %w", err)
	}
	c.ID = doc.Ref.ID
	if c.UnreadCounts == nil {
		c.UnreadCounts = map[string]int{}
	}
	return c, nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (Message, error) {
	var m Message
	if err := doc.DataTo(&m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	m.ID = doc.Ref.ID
	if m.ReadBy == nil {
		m.ReadBy = map[string]bool{}
	}
	return m, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
