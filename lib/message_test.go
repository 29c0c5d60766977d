package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageTypes(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		message  Message
		expected string
	}{
		{name: "new voting round", detail: "authority to all", message: &NewVotingRound{}, expected: "NEW_VOTING_ROUND"},
		{name: "accept votes", detail: "client to authority", message: &AcceptVotes{}, expected: "ACCEPT_VOTES"},
		{name: "propose block", detail: "authority to candidates", message: &ProposeBlock{}, expected: "PROPOSE_BLOCK"},
		{name: "propose candidate block", detail: "delegate to authority", message: &ProposeCandidateBlock{}, expected: "PROPOSE_CANDIDATE_BLOCK"},
		{name: "commit block", detail: "authority to the winner", message: &CommitBlock{}, expected: "COMMIT_BLOCK"},
		{name: "broadcast committed block", detail: "delegate to all", message: &BroadcastCommittedBlock{}, expected: "BROADCAST_COMMITTED_BLOCK"},
		{name: "accept rewards", detail: "authority to all", message: &AcceptRewards{}, expected: "ACCEPT_REWARDS"},
		{name: "post transaction", detail: "client to delegates", message: &PostTransaction{}, expected: "POST_TRANSACTION"},
		{name: "start round", detail: "operator control", message: &StartRound{}, expected: "START_ROUND"},
		{name: "cancel round", detail: "operator control", message: &CancelRound{}, expected: "CANCEL_ROUND"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, test.message.Type().String())
		})
	}
	require.Equal(t, "UNKNOWN(99)", MessageType(99).String())
}

func TestIsMember(t *testing.T) {
	ids := []string{"del1", "del2"}
	require.True(t, IsMember("del2", ids))
	require.False(t, IsMember("del3", ids))
	require.False(t, IsMember("del1", nil))
}
