package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"easy-chat-server/internal/domain"
)

func requesterStore() *fakeConnStore {
	return &fakeConnStore{
		byID: map[string]domain.Connection{
			"c1": {ConnectionID: "c1", Nickname: "bob"},
		},
	}
}

func mustNewHistory(t *testing.T, conns *fakeConnStore, msgs *fakeMessageStore, gateway *fakePusher) *History {
	t.Helper()
	h, err := NewHistory(conns, msgs, gateway)
	require.NoError(t, err)
	return h
}

func TestNewHistory_ValidatesDependencies(t *testing.T) {
	_, err := NewHistory(nil, &fakeMessageStore{}, &fakePusher{})
	require.Error(t, err)
	_, err = NewHistory(&fakeConnStore{}, nil, &fakePusher{})
	require.Error(t, err)
	_, err = NewHistory(&fakeConnStore{}, &fakeMessageStore{}, nil)
	require.Error(t, err)
}

func TestGetMessages_UnknownRequesterConnection(t *testing.T) {
	h := mustNewHistory(t, &fakeConnStore{}, &fakeMessageStore{}, &fakePusher{})

	err := h.GetMessages(context.Background(), GetMessagesInput{ConnectionID: "c9", TargetNickname: "alice", Limit: 10})
	requireErrorCode(t, err, ErrorUnauthenticated)
}

func TestGetMessages_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   GetMessagesInput
	}{
		{name: "missing target", in: GetMessagesInput{ConnectionID: "c1", TargetNickname: " ", Limit: 10}},
		{name: "zero limit", in: GetMessagesInput{ConnectionID: "c1", TargetNickname: "alice", Limit: 0}},
		{name: "negative limit", in: GetMessagesInput{ConnectionID: "c1", TargetNickname: "alice", Limit: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := mustNewHistory(t, requesterStore(), &fakeMessageStore{}, &fakePusher{})
			err := h.GetMessages(context.Background(), tc.in)
			requireErrorCode(t, err, ErrorValidation)
		})
	}
}

func TestGetMessages_PushesNewestFirstPage(t *testing.T) {
	msgs := &fakeMessageStore{
		queryOut: []domain.Message{
			{MessageID: "m2", ConversationKey: "alice#bob", Sender: "bob", Text: "later", CreatedAt: 200},
			{MessageID: "m1", ConversationKey: "alice#bob", Sender: "alice", Text: "earlier", CreatedAt: 100},
		},
		queryLastKey: map[string]any{"messageId": "m1"},
	}
	gateway := &fakePusher{}
	h := mustNewHistory(t, requesterStore(), msgs, gateway)

	startKey := map[string]any{"messageId": "m3"}
	require.NoError(t, h.GetMessages(context.Background(), GetMessagesInput{
		ConnectionID:   "c1",
		TargetNickname: "alice",
		Limit:          10,
		StartKey:       startKey,
	}))

	// The query direction is normalized: bob asking about alice uses the
	// same key alice asking about bob would.
	require.Equal(t, "alice#bob", msgs.lastQueryKey)
	require.Equal(t, int32(10), msgs.lastLimit)
	require.Equal(t, startKey, msgs.lastStartKey)

	payloads := gateway.postsTo("c1")
	require.Len(t, payloads, 1)
	requireJSONPayload(t, payloads[0], `{"type":"messages","value":{
		"messages":[
			{"messageId":"m2","sender":"bob","message":"later","createdAt":200},
			{"messageId":"m1","sender":"alice","message":"earlier","createdAt":100}
		],
		"lastEvaluatedKey":{"messageId":"m1"}
	}}`)
}

func TestGetMessages_EmptyConversationIsNormal(t *testing.T) {
	gateway := &fakePusher{}
	h := mustNewHistory(t, requesterStore(), &fakeMessageStore{}, gateway)

	require.NoError(t, h.GetMessages(context.Background(), GetMessagesInput{
		ConnectionID:   "c1",
		TargetNickname: "alice",
		Limit:          10,
	}))

	payloads := gateway.postsTo("c1")
	require.Len(t, payloads, 1)
	requireJSONPayload(t, payloads[0], `{"type":"messages","value":{"messages":[],"lastEvaluatedKey":null}}`)
}

func TestGetMessages_QueryError(t *testing.T) {
	msgs := &fakeMessageStore{queryErr: errors.New("boom")}
	h := mustNewHistory(t, requesterStore(), msgs, &fakePusher{})

	err := h.GetMessages(context.Background(), GetMessagesInput{ConnectionID: "c1", TargetNickname: "alice", Limit: 10})
	requireErrorCode(t, err, ErrorInfrastructure)
}

func TestGetMessages_GoneRequesterIsReaped(t *testing.T) {
	conns := requesterStore()
	gateway := &fakePusher{errs: map[string]error{"c1": goneError{}}}
	h := mustNewHistory(t, conns, &fakeMessageStore{}, gateway)

	require.NoError(t, h.GetMessages(context.Background(), GetMessagesInput{
		ConnectionID:   "c1",
		TargetNickname: "alice",
		Limit:          10,
	}))
	require.Equal(t, []string{"c1"}, conns.deletes)
}
