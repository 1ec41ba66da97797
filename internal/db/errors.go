package db

import "errors"

// Sentinel errors returned by both store drivers. Repositories translate them
// into domain errors; nothing above the repository layer sees them.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrInvalidQuery  = errors.New("db: invalid query")
)

// Op names the failed command in *Error. Redis ops are command names.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpJSONSet     = "JSON.SET"
	OpJSONGet     = "JSON.GET"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpExists      = "EXISTS"
	OpScan        = "SCAN"
	OpGet         = "GET"
	OpSet         = "SET"

	// OpHSetIfAbsent is the scripted EXISTS+HSET.
	OpHSetIfAbsent = "EVAL HSET"

	// OpQuery labels failures of the postgres driver.
	OpQuery = "SQL"
)

// Error carries the failed operation so logs show which command broke.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
