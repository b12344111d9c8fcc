package storage

import (
	"context"

	"github.com/spigell/ai-interviewer/internal/interview"
)

type nopStore struct{}

func (nopStore) Append(context.Context, string, interview.Entry) error { return nil }

func (nopStore) Write(context.Context, string, *interview.Report) error { return nil }

func (nopStore) Close() error { return nil }
