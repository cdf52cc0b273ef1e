package api

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"novelchat/pkg/metrics"
	"novelchat/pkg/wire"
)

// GroupHistory fetches the group room's stored messages, oldest first.
func (c *Client) GroupHistory(ctx context.Context) ([]wire.ChatMessage, error) {
	start := time.Now()

	var page []Message
	err := c.getJSON(ctx, "/chat/history", nil, &page)
	metrics.RecordHistoryFetch("group", time.Since(start).Seconds(), err == nil)
	if err != nil {
		return nil, err
	}
	return ChatMessages(page), nil
}

// PrivateHistory fetches up to limit messages exchanged between self and peer.
func (c *Client) PrivateHistory(ctx context.Context, self, peer wire.ID, limit int) ([]wire.ChatMessage, error) {
	start := time.Now()

	query := url.Values{}
	query.Set("userId", self.String())
	query.Set("targetUserId", peer.String())
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var page []Message
	err := c.getJSON(ctx, "/chat/private/history", query, &page)
	metrics.RecordHistoryFetch("private", time.Since(start).Seconds(), err == nil)
	if err != nil {
		return nil, err
	}
	return ChatMessages(page), nil
}

// Users lists everyone one can open a private chat with.
func (c *Client) Users(ctx context.Context, exclude wire.ID) ([]User, error) {
	query := url.Values{}
	if exclude != 0 {
		query.Set("excludeUserId", exclude.String())
	}

	var users []User
	if err := c.getJSON(ctx, "/chat/users", query, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) OnlineUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "/chat/online-users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Conversations lists userID's private threads with unread counts.
func (c *Client) Conversations(ctx context.Context, userID wire.ID) ([]Conversation, error) {
	query := url.Values{}
	query.Set("userId", userID.String())

	var convs []Conversation
	if err := c.getJSON(ctx, "/chat/conversations", query, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// MarkAsRead marks every message from sender to userID as read.
func (c *Client) MarkAsRead(ctx context.Context, userID, sender wire.ID) error {
	return c.postJSON(ctx, "/chat/read", ReadRequest{UserID: userID, SenderID: sender}, nil)
}
