// Package seed loads fixture users and feedback from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"labdesk/internal/app/service"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Users    []User     `yaml:"users"`
	Feedback []Feedback `yaml:"feedback"`
}

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Feedback is attributed to the seeded or existing user with Email.
type Feedback struct {
	Email   string `yaml:"email"`
	Rating  int    `yaml:"rating"`
	Message string `yaml:"message"`
}

type Result struct {
	UsersCreated    int
	UsersSkipped    int
	FeedbackCreated int
	FeedbackSkipped int
}

// Decode parses a seed document, rejecting unknown keys.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Apply creates the users of f, then its feedback. Users whose email exists and
// feedback with the same author email and message are skipped, so reapplying a
// file changes nothing.
func Apply(ctx context.Context, users *service.UserService, feedback *service.FeedbackService, f *File) (Result, error) {
	var res Result
	for _, u := range f.Users {
		_, err := users.CreateUser(ctx, service.CreateUserRequest{
			Name: u.Name, Email: u.Email, Password: u.Password, Role: u.Role,
		})
		if errors.Is(err, common.ErrConflict) {
			zap.L().Info("Seed user exists, skipping", zap.String("email", u.Email))
			res.UsersSkipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		res.UsersCreated++
	}

	authors := map[string]*model.CurrentUser{}
	for i, fb := range f.Feedback {
		email := common.NormalizeEmail(fb.Email)
		author, ok := authors[email]
		if !ok {
			u, err := users.GetByEmail(ctx, email)
			if err != nil {
				return res, fmt.Errorf("seed feedback #%d: user %s: %w", i+1, fb.Email, err)
			}
			snap := u.Snapshot()
			author = &snap
			authors[email] = author
		}
		exists, err := feedback.Exists(ctx, author.Email, fb.Message)
		if err != nil {
			return res, fmt.Errorf("seed feedback #%d: %w", i+1, err)
		}
		if exists {
			res.FeedbackSkipped++
			continue
		}
		if _, err := feedback.Create(ctx, author, service.FeedbackRequest{Rating: fb.Rating, Message: fb.Message}); err != nil {
			return res, fmt.Errorf("seed feedback #%d: %w", i+1, err)
		}
		res.FeedbackCreated++
	}
	return res, nil
}
