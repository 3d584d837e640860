package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleUser, true},
		{RoleAI, true},
		{"assistant", false},
		{"", false},
		{"USER", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRole(tt.role))
		})
	}
}

func TestCreateParamsValidate(t *testing.T) {
	valid := CreateParams{JobTitle: "Backend Engineer", CompanyName: "Acme", Topic: "Go concurrency"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*CreateParams)
		wantErr error
	}{
		{"missing job title", func(p *CreateParams) { p.JobTitle = "" }, ErrMissingJobTitle},
		{"missing company", func(p *CreateParams) { p.CompanyName = "" }, ErrMissingCompanyName},
		{"missing topic", func(p *CreateParams) { p.Topic = "" }, ErrMissingTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), tt.wantErr)
		})
	}

	// Difficulty is optional.
	p := valid
	p.Difficulty = ""
	assert.NoError(t, p.Validate())
}
