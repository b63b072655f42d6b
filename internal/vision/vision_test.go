package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const proof = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

type fakeGenerator struct {
	answer   string
	err      error
	model    string
	contents []*genai.Content
	calls    int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.answer}}},
		}},
	}, nil
}

func TestVerify_Answers(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes", true},
		{" Yes \n", true},
		{"no", false},
		{"NO", false},
		{"yes please", false},
		{"YES.", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			gen := &fakeGenerator{answer: tt.answer}
			c := newClient(gen, "")

			assert.Equal(t, tt.want, c.Verify(context.Background(), "run a marathon", proof))
			assert.Equal(t, 1, gen.calls)
		})
	}
}

func TestVerify_TransportErrorIsNegative(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("401 unauthorized")}
	c := newClient(gen, "")

	assert.False(t, c.Verify(context.Background(), "read a book", proof))
	assert.Equal(t, 1, gen.calls)
}

func TestVerify_UndecodableProofSkipsModel(t *testing.T) {
	gen := &fakeGenerator{answer: "YES"}
	c := newClient(gen, "")

	assert.False(t, c.Verify(context.Background(), "read a book", "not-a-data-uri"))
	assert.Zero(t, gen.calls)
}

func TestVerify_RequestShape(t *testing.T) {
	gen := &fakeGenerator{answer: "YES"}
	c := newClient(gen, "gemini-test")

	require.True(t, c.Verify(context.Background(), "clean the garage", proof))

	assert.Equal(t, "gemini-test", gen.model)
	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.NotEmpty(t, parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "'clean the garage'")
	assert.Contains(t, parts[1].Text, "either YES or NO")
}

func TestPing(t *testing.T) {
	ok := newClient(&fakeGenerator{answer: "OK"}, "")
	assert.NoError(t, ok.Ping(context.Background()))

	empty := newClient(&fakeGenerator{answer: ""}, "")
	assert.ErrorIs(t, empty.Ping(context.Background()), ErrEmptyAnswer)

	failing := newClient(&fakeGenerator{err: errors.New("bad key")}, "")
	assert.Error(t, failing.Ping(context.Background()))
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_DefaultModel(t *testing.T) {
	c := newClient(&fakeGenerator{}, "")
	assert.Equal(t, DefaultModel, c.model)
}
