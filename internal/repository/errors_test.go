package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7-12-1' for key 'uniq_live_seat'"}
	assert.True(t, isDuplicateKey(dup))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert tickets: %w", dup)), "wrapped driver errors are recognized")

	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213}), "deadlocks are transient, not conflicts")
	assert.False(t, isDuplicateKey(errors.New("broken pipe")))
	assert.False(t, isDuplicateKey(nil))
}
