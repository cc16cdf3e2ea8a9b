package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

type fakeSource struct {
	content string
	err     error
	calls   []string
}

func (f *fakeSource) FetchTranscript(_ context.Context, meetingID string) (string, error) {
	f.calls = append(f.calls, meetingID)
	return f.content, f.err
}

type fakeForum struct {
	createdTitle string
	createdBody  string
	createdCat   int
	nextTopicID  int64
	replies      map[int64]string
	replyErr     error
}

func (f *fakeForum) CreateTopic(_ context.Context, title, body string, categoryID int) (int64, error) {
	f.createdTitle = title
	f.createdBody = body
	f.createdCat = categoryID
	return f.nextTopicID, nil
}

func (f *fakeForum) ReplyToTopic(_ context.Context, topicID int64, body string) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	if f.replies == nil {
		f.replies = make(map[int64]string)
	}
	f.replies[topicID] = body
	return nil
}

func TestPublish_RepliesToExistingTopic(t *testing.T) {
	source := &fakeSource{content: sampleVTT}
	forum := &fakeForum{}
	pub := NewPublisher(source, forum, 63, nil)

	topicID, err := pub.Publish(context.Background(), "86823953733", 21326, "")
	require.NoError(t, err)
	assert.Equal(t, int64(21326), topicID)

	body := forum.replies[21326]
	assert.Contains(t, body, "## Transcript")
	assert.Contains(t, body, "**Tim Beiko:**")
	assert.Empty(t, forum.createdTitle, "must not create a topic when one is mapped")
}

func TestPublish_CreatesTopicWhenUnmapped(t *testing.T) {
	source := &fakeSource{content: sampleVTT}
	forum := &fakeForum{nextTopicID: 555}
	pub := NewPublisher(source, forum, 63, nil)

	topicID, err := pub.Publish(context.Background(), "123", 0, "ACDE 190")
	require.NoError(t, err)
	assert.Equal(t, int64(555), topicID)
	assert.Equal(t, "ACDE 190", forum.createdTitle)
	assert.Equal(t, 63, forum.createdCat)
	assert.Contains(t, forum.createdBody, "## Transcript")
}

func TestPublish_FallbackTitle(t *testing.T) {
	source := &fakeSource{content: sampleVTT}
	forum := &fakeForum{nextTopicID: 1}
	pub := NewPublisher(source, forum, 63, nil)

	_, err := pub.Publish(context.Background(), "987", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "Meeting 987", forum.createdTitle)
}

func TestPublish_EmptyTranscript(t *testing.T) {
	source := &fakeSource{content: "   \n"}
	pub := NewPublisher(source, &fakeForum{}, 63, nil)

	_, err := pub.Publish(context.Background(), "123", 21326, "")
	require.Error(t, err)
	assert.True(t, boterrors.IsValidation(err))
}

func TestPublish_FetchErrorPropagates(t *testing.T) {
	cause := boterrors.NewProviderStatusError("zoom", "fetch_transcript", 404)
	source := &fakeSource{err: cause}
	pub := NewPublisher(source, &fakeForum{}, 63, nil)

	_, err := pub.Publish(context.Background(), "123", 21326, "")
	require.Error(t, err)
	pe, ok := boterrors.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, 404, pe.StatusCode)
}

func TestPublish_ReplyErrorPropagates(t *testing.T) {
	source := &fakeSource{content: sampleVTT}
	forum := &fakeForum{replyErr: errors.New("forum down")}
	pub := NewPublisher(source, forum, 63, nil)

	_, err := pub.Publish(context.Background(), "123", 21326, "")
	require.Error(t, err)
}
