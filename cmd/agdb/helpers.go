package main

import (
	"strconv"

	"github.com/agnesoft/agdb-go/pkg/agdb"
	"github.com/agnesoft/agdb-go/pkg/dbvalue"
)

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func stringKeyValue(key, value string) agdb.KeyValue {
	return agdb.KeyValue{Key: dbvalue.FromString(key), Value: dbvalue.FromString(value)}
}
