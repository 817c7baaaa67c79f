package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/internal/storage/models"
)

type fakeDynamo struct {
	inputs []*dynamodb.UpdateItemInput
	err    error
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

type fakeWriter struct {
	calls []bool
	err   error
}

func (f *fakeWriter) Record(_ context.Context, _ string, liked bool) error {
	f.calls = append(f.calls, liked)
	return f.err
}

type fakeLog struct {
	records []*models.FeedbackRecord
}

func (f *fakeLog) InsertFeedback(_ context.Context, r *models.FeedbackRecord) error {
	f.records = append(f.records, r)
	return nil
}

func ratedState() *session.State {
	s := session.New("s1")
	s.AppendUser("q")
	s.AppendAssistant("a", session.TurnDetail{QueryID: "q-1"})
	return s
}

func TestRecorderBuildsConditionalUpdate(t *testing.T) {
	db := &fakeDynamo{}
	r := NewRecorder(db, "chat_feedback", "", "")

	require.NoError(t, r.Record(context.Background(), "q-1", true))
	require.Len(t, db.inputs, 1)

	in := db.inputs[0]
	assert.Equal(t, "chat_feedback", aws.ToString(in.TableName))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "q-1"}, in.Key["query_id"])
	assert.Equal(t, "attribute_exists(#key)", aws.ToString(in.ConditionExpression))
	assert.Equal(t, "liked", in.ExpressionAttributeNames["#liked"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, in.ExpressionAttributeValues[":liked"])
}

func TestRecorderErrors(t *testing.T) {
	db := &fakeDynamo{err: &types.ConditionalCheckFailedException{Message: aws.String("no item")}}
	err := NewRecorder(db, "t", "", "").Record(context.Background(), "missing", false)
	assert.ErrorIs(t, err, ErrUnknownQuery)

	db = &fakeDynamo{err: errors.New("throttled")}
	err = NewRecorder(db, "t", "", "").Record(context.Background(), "q", false)
	assert.ErrorContains(t, err, "throttled")
	assert.Len(t, db.inputs, 1, "no retry")
}

func TestRateWritesOnce(t *testing.T) {
	writer := &fakeWriter{}
	log := &fakeLog{}
	svc := NewService(writer, log)
	state := ratedState()

	assert.True(t, svc.Rate(context.Background(), state, 1, true))
	assert.False(t, svc.Rate(context.Background(), state, 1, false), "second verdict is ignored")

	assert.Equal(t, session.VerdictPositive, state.Feedback[1])
	assert.Equal(t, []bool{true}, writer.calls)
	require.Len(t, log.records, 1)
	assert.True(t, log.records[0].RemoteWritten)
	assert.Equal(t, "q-1", log.records[0].QueryID)
}

func TestRateKeepsLocalVerdictWhenRemoteFails(t *testing.T) {
	writer := &fakeWriter{err: errors.New("unavailable")}
	state := ratedState()

	assert.True(t, NewService(writer, nil).Rate(context.Background(), state, 1, false))
	assert.Equal(t, session.VerdictNegative, state.Feedback[1])
	assert.Len(t, writer.calls, 1)
}

func TestRateRejectsNonAssistantIndex(t *testing.T) {
	writer := &fakeWriter{}
	state := ratedState()

	assert.False(t, NewService(writer, nil).Rate(context.Background(), state, 0, true))
	assert.Empty(t, state.Feedback)
	assert.Empty(t, writer.calls)
}

func TestRateSkipsRemoteWithoutQueryID(t *testing.T) {
	writer := &fakeWriter{}
	state := session.New("s1")
	state.AppendUser("q")
	state.AppendAssistant("Error: Received status code 500", session.NoDetails())

	assert.True(t, NewService(writer, nil).Rate(context.Background(), state, 1, true))
	assert.Empty(t, writer.calls)
}
