// Package telegram provides a simple client for the Telegram Bot API.
//
// It covers the calls the subscription engine needs: sending messages
// to subscribers and banning/unbanning channel members.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client represents a Telegram Bot API client.
type Client struct {
	token  string       // bot token for authentication
	client *http.Client // HTTP client used to make requests
}

// NewClient creates a new Telegram Client instance with the given bot token.
func NewClient(token string) *Client {
	return &Client{
		token:  token,
		client: &http.Client{},
	}
}

// sendMessageRequest represents the payload for the sendMessage API.
type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// banChatMemberRequest represents the payload for the banChatMember API.
type banChatMemberRequest struct {
	ChatID         string `json:"chat_id"`
	UserID         int64  `json:"user_id"`
	RevokeMessages bool   `json:"revoke_messages"`
}

// unbanChatMemberRequest represents the payload for the unbanChatMember API.
type unbanChatMemberRequest struct {
	ChatID       string `json:"chat_id"`
	UserID       int64  `json:"user_id"`
	OnlyIfBanned bool   `json:"only_if_banned"`
}

// Send sends a message to the specified Telegram chat ID.
func (c *Client) Send(to string, msg string) error {
	return c.call("sendMessage", sendMessageRequest{
		ChatID: to,
		Text:   msg,
	})
}

// BanChatMember bans a user from the channel. The ban stands until an
// explicit unban, so old invite links no longer let the user back in.
// Safe to call on an already-banned user.
func (c *Client) BanChatMember(chatID string, userID int64) error {
	return c.call("banChatMember", banChatMemberRequest{
		ChatID:         chatID,
		UserID:         userID,
		RevokeMessages: false,
	})
}

// UnbanChatMember lifts a user's ban so they can rejoin the channel.
// Safe to call on a user who was never banned.
func (c *Client) UnbanChatMember(chatID string, userID int64) error {
	return c.call("unbanChatMember", unbanChatMemberRequest{
		ChatID:       chatID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
}

// call sends an HTTP POST to one Bot API method and returns an error if
// the request fails or the API responds with a non-200 status.
func (c *Client) call(method string, payload interface{}) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/%s", c.token, method)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}
