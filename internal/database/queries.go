package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const messageColumns = "id, conversation_id, sender_id, content, media_urls, " +
	"is_edited, edited_at, is_pinned, pinned_by, pinned_at, " +
	"forwarded_from_id, forwarded_from_conversation, forwarded_from_sender, " +
	"is_scheduled, scheduled_for, is_scheduled_sent, created_at, updated_at"

func (db *PgChatRepository) GetAccountById(accountId string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, role, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.DisplayName,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) GetConversation(conversationId string) (Conversation, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, is_group, group_admin, last_message_id, last_message_at, "+
			"is_archived, archived_at, archived_by, created_at, updated_at "+
			"FROM conversations WHERE id = $1 LIMIT 1",
		conversationId,
	)

	c, err := scanConversation(row)
	if err != nil {
		return Conversation{}, err
	}

	c.Participants, err = db.getParticipants(c.Id)
	return c, err
}

func (db *PgChatRepository) ListConversations(accountId string) ([]Conversation, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.name, c.is_group, c.group_admin, c.last_message_id, c.last_message_at, "+
			"c.is_archived, c.archived_at, c.archived_by, c.created_at, c.updated_at "+
			"FROM conversations c "+
			"JOIN conversation_participants p ON p.conversation_id = c.id "+
			"WHERE p.account_id = $1 "+
			"ORDER BY c.last_message_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		conversations[i].Participants, err = db.getParticipants(conversations[i].Id)
		if err != nil {
			return nil, err
		}
	}

	return conversations, nil
}

func (db *PgChatRepository) getParticipants(conversationId string) ([]Participant, error) {
	rows, err := db.conn.Query(
		"SELECT conversation_id, account_id, unread_count, muted, created_at "+
			"FROM conversation_participants WHERE conversation_id = $1 "+
			"ORDER BY created_at",
		conversationId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ConversationId, &p.AccountId, &p.UnreadCount, &p.Muted, &p.CreatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func (db *PgChatRepository) UpdateConversationOnMessage(conversationId, messageId, senderId string, at time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// GREATEST keeps last_message_at monotone when a delayed dispatch
	// commits after a newer live message.
	if _, err := tx.Exec(
		"UPDATE conversations SET last_message_id = $2, "+
			"last_message_at = GREATEST(last_message_at, $3), updated_at = $3 "+
			"WHERE id = $1",
		conversationId, messageId, at,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"UPDATE conversation_participants SET unread_count = unread_count + 1 "+
			"WHERE conversation_id = $1 AND account_id <> $2",
		conversationId, senderId,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) ResetUnreadCount(conversationId, accountId string) error {
	_, err := db.conn.Exec(
		"UPDATE conversation_participants SET unread_count = 0 "+
			"WHERE conversation_id = $1 AND account_id = $2",
		conversationId, accountId,
	)
	return err
}

func (db *PgChatRepository) RemoveParticipant(conversationId, accountId string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"DELETE FROM conversation_participants WHERE conversation_id = $1 AND account_id = $2",
		conversationId, accountId,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	var admin string
	if err := tx.QueryRow(
		"SELECT group_admin FROM conversations WHERE id = $1 FOR UPDATE",
		conversationId,
	).Scan(&admin); err != nil {
		return err
	}

	var next sql.NullString
	err = tx.QueryRow(
		"SELECT account_id FROM conversation_participants "+
			"WHERE conversation_id = $1 ORDER BY created_at LIMIT 1",
		conversationId,
	).Scan(&next)
	if err == sql.ErrNoRows {
		// last participant gone, the conversation goes with it
		if _, err := tx.Exec("DELETE FROM conversations WHERE id = $1", conversationId); err != nil {
			return err
		}
		return tx.Commit()
	}
	if err != nil {
		return err
	}

	if admin == accountId {
		// admin rights transfer to the longest-standing remaining participant
		if _, err := tx.Exec(
			"UPDATE conversations SET group_admin = $2, updated_at = now() WHERE id = $1",
			conversationId, next.String,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	var scheduledFor sql.NullTime
	if params.ScheduledFor != nil {
		scheduledFor = sql.NullTime{Time: *params.ScheduledFor, Valid: true}
	}

	_, err := db.conn.Exec(
		"INSERT INTO messages (id, conversation_id, sender_id, content, media_urls, "+
			"forwarded_from_id, forwarded_from_conversation, forwarded_from_sender, "+
			"is_scheduled, scheduled_for, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)",
		params.Id,
		params.ConversationId,
		params.SenderId,
		params.Content,
		pq.Array(params.MediaUrls),
		params.ForwardedFromId,
		params.ForwardedConvId,
		params.ForwardedSender,
		params.IsScheduled,
		scheduledFor,
		params.CreatedAt,
	)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	return db.GetMessage(params.Id)
}

func (db *PgChatRepository) GetMessage(messageId string) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT "+messageColumns+" FROM messages WHERE id = $1 LIMIT 1",
		messageId,
	)

	msg, err := scanMessage(row)
	if err != nil {
		return Message{}, err
	}

	if err := db.loadMessageRelations(&msg); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgChatRepository) ListMessages(conversationId, viewerId string, before time.Time, limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE conversation_id = $1 AND created_at < $2 "+
			"AND NOT (is_scheduled AND NOT is_scheduled_sent) "+
			"AND id NOT IN (SELECT message_id FROM message_deletions WHERE account_id = $3) "+
			"ORDER BY created_at DESC LIMIT $4",
		conversationId, before, viewerId, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		if err := db.loadMessageRelations(&messages[i]); err != nil {
			return nil, err
		}
	}

	return messages, nil
}

func (db *PgChatRepository) UpdateMessageContent(messageId, content string, at time.Time) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer tx.Rollback()

	var previous string
	if err := tx.QueryRow(
		"SELECT content FROM messages WHERE id = $1 FOR UPDATE",
		messageId,
	).Scan(&previous); err != nil {
		return Message{}, err
	}

	if _, err := tx.Exec(
		"INSERT INTO message_edits (message_id, content, edited_at) VALUES ($1, $2, $3)",
		messageId, previous, at,
	); err != nil {
		return Message{}, err
	}

	if _, err := tx.Exec(
		"UPDATE messages SET content = $2, is_edited = TRUE, edited_at = $3, updated_at = $3 "+
			"WHERE id = $1",
		messageId, content, at,
	); err != nil {
		return Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return Message{}, err
	}

	return db.GetMessage(messageId)
}

func (db *PgChatRepository) SoftDeleteMessage(messageId, accountId string) error {
	_, err := db.conn.Exec(
		"INSERT INTO message_deletions (message_id, account_id) VALUES ($1, $2) "+
			"ON CONFLICT DO NOTHING",
		messageId, accountId,
	)
	return err
}

func (db *PgChatRepository) UpsertReadReceipt(messageId, accountId string, at time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO message_reads (message_id, account_id, read_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (message_id, account_id) DO UPDATE SET read_at = EXCLUDED.read_at",
		messageId, accountId, at,
	)
	return err
}

// ToggleReaction is a single conditional statement so two racing toggles
// for the same (emoji, account) pair serialize on the primary key instead
// of losing an update in a read-then-save window.
func (db *PgChatRepository) ToggleReaction(messageId, accountId, emoji string, at time.Time) (bool, error) {
	var added int
	err := db.conn.QueryRow(
		`WITH removed AS (
			DELETE FROM message_reactions
			WHERE message_id = $1 AND account_id = $2 AND emoji = $3
			RETURNING 1
		), inserted AS (
			INSERT INTO message_reactions (message_id, account_id, emoji, created_at)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT (message_id, account_id, emoji) DO NOTHING
			RETURNING 1
		)
		SELECT count(*) FROM inserted`,
		messageId, accountId, emoji, at,
	).Scan(&added)
	if err != nil {
		return false, err
	}

	return added == 1, nil
}

func (db *PgChatRepository) GetReactions(messageId string) ([]Reaction, error) {
	rows, err := db.conn.Query(
		"SELECT emoji, account_id, created_at FROM message_reactions "+
			"WHERE message_id = $1 ORDER BY created_at",
		messageId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.Emoji, &r.AccountId, &r.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}

	return reactions, rows.Err()
}

func (db *PgChatRepository) SetPinned(messageId, accountId string, pinned bool, at time.Time) error {
	res, err := db.conn.Exec(
		"UPDATE messages SET is_pinned = $2, "+
			"pinned_by = CASE WHEN $2 THEN $3 ELSE '' END, "+
			"pinned_at = CASE WHEN $2 THEN $4 ELSE NULL END, "+
			"updated_at = $4 "+
			"WHERE id = $1",
		messageId, pinned, accountId, at,
	)
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *PgChatRepository) ListDueScheduled(now time.Time, limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE is_scheduled AND NOT is_scheduled_sent AND scheduled_for <= $1 "+
			"ORDER BY scheduled_for LIMIT $2",
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgChatRepository) ListScheduled(accountId string) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE sender_id = $1 AND is_scheduled AND NOT is_scheduled_sent "+
			"ORDER BY scheduled_for",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgChatRepository) ClaimScheduled(messageId string, at time.Time) (bool, error) {
	res, err := db.conn.Exec(
		"UPDATE messages SET is_scheduled_sent = TRUE, updated_at = $2 "+
			"WHERE id = $1 AND is_scheduled AND NOT is_scheduled_sent",
		messageId, at,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n == 1, err
}

func (db *PgChatRepository) DeleteScheduled(messageId, accountId string) (bool, error) {
	res, err := db.conn.Exec(
		"DELETE FROM messages "+
			"WHERE id = $1 AND sender_id = $2 AND is_scheduled AND NOT is_scheduled_sent",
		messageId, accountId,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n == 1, err
}

func (db *PgChatRepository) loadMessageRelations(msg *Message) error {
	var err error
	if msg.Reactions, err = db.GetReactions(msg.Id); err != nil {
		return err
	}

	rows, err := db.conn.Query(
		"SELECT account_id, read_at FROM message_reads WHERE message_id = $1 ORDER BY read_at",
		msg.Id,
	)
	if err != nil {
		return err
	}
	for rows.Next() {
		var r ReadReceipt
		if err := rows.Scan(&r.AccountId, &r.ReadAt); err != nil {
			rows.Close()
			return err
		}
		msg.ReadBy = append(msg.ReadBy, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.conn.Query(
		"SELECT content, edited_at FROM message_edits WHERE message_id = $1 ORDER BY id",
		msg.Id,
	)
	if err != nil {
		return err
	}
	for rows.Next() {
		var e EditRecord
		if err := rows.Scan(&e.Content, &e.EditedAt); err != nil {
			rows.Close()
			return err
		}
		msg.EditHistory = append(msg.EditHistory, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.conn.Query(
		"SELECT account_id FROM message_deletions WHERE message_id = $1",
		msg.Id,
	)
	if err != nil {
		return err
	}
	for rows.Next() {
		var accountId string
		if err := rows.Scan(&accountId); err != nil {
			rows.Close()
			return err
		}
		msg.DeletedFor = append(msg.DeletedFor, accountId)
	}
	rows.Close()

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var c Conversation
	var archivedAt sql.NullTime
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.IsGroup,
		&c.GroupAdmin,
		&c.LastMessageId,
		&c.LastMessageAt,
		&c.IsArchived,
		&archivedAt,
		&c.ArchivedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return Conversation{}, err
	}

	if archivedAt.Valid {
		c.ArchivedAt = &archivedAt.Time
	}
	return c, nil
}

func scanMessage(row rowScanner) (Message, error) {
	var msg Message
	var mediaUrls pq.StringArray
	var editedAt, pinnedAt, scheduledFor sql.NullTime
	err := row.Scan(
		&msg.Id,
		&msg.ConversationId,
		&msg.SenderId,
		&msg.Content,
		&mediaUrls,
		&msg.IsEdited,
		&editedAt,
		&msg.IsPinned,
		&msg.PinnedBy,
		&pinnedAt,
		&msg.ForwardedFromId,
		&msg.ForwardedConvId,
		&msg.ForwardedSender,
		&msg.IsScheduled,
		&scheduledFor,
		&msg.IsScheduledSent,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	msg.MediaUrls = mediaUrls
	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}
	if pinnedAt.Valid {
		msg.PinnedAt = &pinnedAt.Time
	}
	if scheduledFor.Valid {
		msg.ScheduledFor = &scheduledFor.Time
	}

	return msg, nil
}
