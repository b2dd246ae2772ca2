// Package model はドメインモデルを定義する。
package model

// Book は蔵書を表す。
// Quantityは現在貸出可能な冊数であり、0未満にならないことが不変条件。
// 減算は貸出成功時のみ、加算は返却成功時のみ行われる。
type Book struct {
	ID       int64
	Title    string
	Author   string
	Year     *int
	ISBN     *string
	Quantity int
}
