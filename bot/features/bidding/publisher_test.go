package bidding

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestIsMessageGone(t *testing.T) {
	unknownMessage := &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}
	assert.True(t, isMessageGone(unknownMessage))

	notFound := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
	}
	assert.True(t, isMessageGone(notFound))

	serverError := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusInternalServerError},
	}
	assert.False(t, isMessageGone(serverError))

	assert.False(t, isMessageGone(errors.New("network down")))
	assert.False(t, isMessageGone(nil))
}
