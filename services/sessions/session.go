// Package sessions logs users in and remembers who they are.
package sessions

import (
	"strconv"
	"time"

	"novelchat/pkg/wire"
	"novelchat/services/api"
)

// Session is the identity a chat view sends as. Pass it by value; nothing
// changes it after login.
type Session struct {
	UserID    wire.ID
	Username  string
	Nickname  string
	Avatar    string
	Token     string
	LoginTime time.Time
}

func NewSession(user api.User, loginTime time.Time) Session {
	return Session{
		UserID:    user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		Avatar:    user.Avatar,
		Token:     user.Token,
		LoginTime: loginTime,
	}
}

func (s Session) DisplayName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return s.Username
}

func (s Session) Marshal() map[string]any {
	return map[string]any{
		"user_id":    s.UserID.String(),
		"username":   s.Username,
		"nickname":   s.Nickname,
		"avatar":     s.Avatar,
		"token":      s.Token,
		"login_time": s.LoginTime.Unix(),
	}
}

func (s *Session) Unmarshal(data map[string]string) error {
	var err error
	s.UserID, err = wire.ParseID(data["user_id"])
	if err != nil {
		return err
	}
	s.Username = data["username"]
	s.Nickname = data["nickname"]
	s.Avatar = data["avatar"]
	s.Token = data["token"]

	loginTime, err := strconv.ParseInt(data["login_time"], 10, 64)
	if err != nil {
		return err
	}
	s.LoginTime = time.Unix(loginTime, 0)
	return nil
}
