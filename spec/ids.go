package spec

// SID 是情境（scenario）的唯一識別碼，型錄註冊與查詢都以它為鍵。
type SID uint
