// Package store implements the Hive-style partitioned on-disk layout
// and its atomic stage/backup/publish write discipline (C2).
package store

import (
	"fmt"
	"strconv"
	"strings"
)

const partitionKeyPrefix = "TRD_DD="

// PartitionKey formats a trading date as the fixed textual partition
// directory name.
func PartitionKey(date int) string {
	return fmt.Sprintf("%s%08d", partitionKeyPrefix, date)
}

// ParsePartitionKey recovers the trading date encoded in a partition
// directory name. The partition key is never stored inside the file
// itself; scan reconstructs it from the directory name alone.
func ParsePartitionKey(name string) (int, bool) {
	if !strings.HasPrefix(name, partitionKeyPrefix) {
		return 0, false
	}
	digits := strings.TrimPrefix(name, partitionKeyPrefix)
	date, err := strconv.Atoi(digits)
	if err != nil || len(digits) != 8 {
		return 0, false
	}
	return date, true
}
