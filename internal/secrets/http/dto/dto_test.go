package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	secretsDomain "github.com/allisson/secretbroker/internal/secrets/domain"
)

func TestCreateSecretRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateSecretRequest
		wantErr bool
	}{
		{name: "valid", req: CreateSecretRequest{Name: "db-password", Value: "s3cr3t"}, wantErr: false},
		{name: "valid with service", req: CreateSecretRequest{Name: "db.password", Value: "x", Service: "api"}, wantErr: false},
		{name: "empty name", req: CreateSecretRequest{Value: "x"}, wantErr: true},
		{name: "blank name", req: CreateSecretRequest{Name: "   ", Value: "x"}, wantErr: true},
		{name: "slash in name", req: CreateSecretRequest{Name: "db/password", Value: "x"}, wantErr: true},
		{name: "leading dash", req: CreateSecretRequest{Name: "-db", Value: "x"}, wantErr: true},
		{name: "name too long", req: CreateSecretRequest{Name: strings.Repeat("a", 254), Value: "x"}, wantErr: true},
		{name: "empty value", req: CreateSecretRequest{Name: "db-password"}, wantErr: true},
		{name: "service with spaces", req: CreateSecretRequest{Name: "db", Value: "x", Service: " api"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateSecretRequest_Validate(t *testing.T) {
	req := UpdateSecretRequest{Value: "new"}
	assert.NoError(t, req.Validate())

	req = UpdateSecretRequest{}
	assert.Error(t, req.Validate())
}

func TestRequest_ToDomain(t *testing.T) {
	create := CreateSecretRequest{Name: "db-password", Value: "s3cr3t", Service: "api"}
	assert.Equal(t, &secretsDomain.Secret{Name: "db-password", Value: []byte("s3cr3t"), Service: "api"}, create.ToDomain())

	update := UpdateSecretRequest{Value: "new"}
	assert.Equal(t, &secretsDomain.Secret{Name: "db-password", Value: []byte("new")}, update.ToDomain("db-password"))
}

func TestMapSecretToResponse(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	secret := &secretsDomain.Secret{
		Name:      "db-password",
		Value:     []byte("s3cr3t"),
		ID:        "sec-1",
		Version:   3,
		Metadata:  map[string]string{"mount": "secret"},
		CreatedAt: createdAt,
	}

	write := MapSecretToWriteResponse(secret)
	assert.Empty(t, write.Value)
	assert.Equal(t, "sec-1", write.ID)
	assert.Equal(t, &createdAt, write.CreatedAt)

	get := MapSecretToGetResponse(secret)
	assert.Equal(t, "s3cr3t", get.Value)
	assert.Equal(t, "secret", get.Metadata["mount"])

	noTime := MapSecretToWriteResponse(&secretsDomain.Secret{Name: "x"})
	assert.Nil(t, noTime.CreatedAt)
}
