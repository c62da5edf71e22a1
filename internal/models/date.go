package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// 受け付ける due_date の書式
var dateLayouts = []string{"2006-01-02", time.RFC3339Nano}

// Date は "2006-01-02" と RFC3339 のどちらでも受け取れる日付です。
type Date struct {
	time.Time
}

// UnmarshalJSON は日付のみ、またはタイムスタンプの文字列を読み込みます。
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("due_date must be a string: %w", err)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("due_date %q is not a date (YYYY-MM-DD) or RFC3339 timestamp", s)
}

// Ptr は time.Time のポインタを返します。nil の Date は nil。
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
