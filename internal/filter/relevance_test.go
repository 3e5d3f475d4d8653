package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"news_spider/internal/aliases"
	"news_spider/internal/models"
)

var testAliases = aliases.Table{
	"BID": {"BID", "BIDV", "ngân hàng BIDV"},
	"FPT": {"FPT", "Tập đoàn FPT"},
}

func window(start, end string) Window {
	s, _ := time.Parse("2006-01-02", start)
	e, _ := time.Parse("2006-01-02", end)
	return Window{Start: s, End: e}
}

func TestMentionsBoundaryAware(t *testing.T) {
	f := &Filter{Aliases: testAliases}

	assert.True(t, f.Mentions("Cổ phiếu BID tăng trần hôm nay", "BID"))
	assert.True(t, f.Mentions("Ngân hàng (BID) công bố lợi nhuận", "BID"))
	assert.True(t, f.Mentions("BID, VCB và MBB cùng tăng", "BID"))
	assert.True(t, f.Mentions("kết phiên với BID", "BID"), "name at end of text")

	// Substring collisions must not fire for short tickers.
	assert.False(t, f.Mentions("nhà thầu FORBIDDEN city project", "BID"))
	assert.False(t, f.Mentions("công ty BIDCO trúng thầu", "BID"))

	// Longer alias matches as a plain substring.
	assert.True(t, f.Mentions("theo đại diện ngân hàng BIDV chi nhánh Huế", "BID"))
}

func TestEvaluateDateWindowBoundaries(t *testing.T) {
	f := &Filter{Aliases: testAliases, Window: window("2024-01-01", "2024-01-31")}

	article := func(date string) *models.ExtractedArticle {
		return &models.ExtractedArticle{
			Title:       "BIDV báo lãi quý",
			Body:        strings.Repeat("ngân hàng BIDV tăng trưởng tín dụng. ", 5),
			PublishDate: date,
		}
	}

	assert.True(t, f.Evaluate(article("2024-01-01"), "BID").OK, "window start inclusive")
	assert.True(t, f.Evaluate(article("2024-01-31"), "BID").OK, "window end inclusive")

	v := f.Evaluate(article("2023-12-31"), "BID")
	assert.False(t, v.OK)
	assert.Equal(t, ReasonOutOfWindow, v.Reason)

	v = f.Evaluate(article("2024-02-01"), "BID")
	assert.False(t, v.OK)
	assert.Equal(t, ReasonOutOfWindow, v.Reason)

	// Sites stamp datetime attributes in +07:00; early-morning articles on
	// the window's first day must not shift back a calendar day.
	v = f.Evaluate(article("2024-01-01T06:30:00+07:00"), "BID")
	assert.True(t, v.OK, "zoned stamp on the window start day")
	assert.Equal(t, "2024-01-01", v.Date)

	v = f.Evaluate(article("2024-01-31T23:55:00+07:00"), "BID")
	assert.True(t, v.OK, "zoned stamp on the window end day")
}

func TestEvaluateUnparseableDatePolicy(t *testing.T) {
	article := &models.ExtractedArticle{
		Title:       "Tập đoàn FPT mở rộng",
		Body:        "Tập đoàn FPT công bố kế hoạch kinh doanh mới cho năm tới.",
		PublishDate: "không rõ ngày",
	}

	drop := &Filter{Aliases: testAliases, Window: window("2024-01-01", "2024-12-31")}
	v := drop.Evaluate(article, "FPT")
	assert.False(t, v.OK)
	assert.Equal(t, ReasonBadDate, v.Reason)

	keep := &Filter{Aliases: testAliases, Window: window("2024-01-01", "2024-12-31"), KeepUnparseable: true}
	v = keep.Evaluate(article, "FPT")
	assert.True(t, v.OK)
	assert.Equal(t, "", v.Date, "kept article has no date columns")
}

func TestEvaluateNoMention(t *testing.T) {
	f := &Filter{Aliases: testAliases}
	v := f.Evaluate(&models.ExtractedArticle{
		Title:       "Giá vàng hôm nay",
		Body:        "Giá vàng trong nước tiếp tục đi ngang.",
		PublishDate: "15/7/2024",
	}, "BID")
	assert.False(t, v.OK)
	assert.Equal(t, ReasonNoMention, v.Reason)
}

func TestScore(t *testing.T) {
	f := &Filter{Aliases: testAliases}

	financial := "Ngân hàng BIDV báo lợi nhuận 7.000 tỷ đồng, tăng trưởng tín dụng mạnh, cổ phiếu lên giá"
	assert.GreaterOrEqual(t, f.Score(financial, "BID"), 2, "sector vocabulary plus currency amount")

	passing := "Chi nhánh BIDV tài trợ giải chạy phong trào cuối tuần"
	assert.Less(t, f.Score(passing, "BID"), 2, "incidental mention scores low")

	// Without the entity name the score is halved.
	generic := "thị trường chứng khoán và cổ phiếu ngân hàng với tín dụng tăng"
	withName := generic + " theo BIDV"
	assert.Less(t, f.Score(generic, "BID"), f.Score(withName, "BID"))
}

func TestScoreGate(t *testing.T) {
	f := &Filter{Aliases: testAliases, MinScore: 2, KeepUnparseable: true}
	v := f.Evaluate(&models.ExtractedArticle{
		Title: "BIDV đồng hành cùng lễ hội",
		Body:  "Đại diện BIDV trao quà cho người dân địa phương trong lễ hội mùa xuân.",
	}, "BID")
	assert.False(t, v.OK)
	assert.Equal(t, ReasonLowScore, v.Reason)
}
