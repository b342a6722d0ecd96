// ABOUTME: Field and cross-field rules for household submissions
// ABOUTME: Collects every problem instead of stopping at the first one

package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/2389/household-registry/internal/household"
)

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("validation failed")

// Error lists every problem found in a submission. Problems are
// user-facing and written in Japanese.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return strings.Join(e.Problems, "\n")
}

// Is reports whether target is ErrInvalid.
func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^0\d{1,4}-?\d{1,4}-?\d{3,4}$`)
	postalPattern = regexp.MustCompile(`^\d{3}-?\d{4}$`)
	kanaPattern   = regexp.MustCompile(`^[\p{Katakana}ー・ 　]+$`)
	yearPattern   = regexp.MustCompile(`^\d{4}$`)
)

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

type collector struct {
	problems []string
}

func (c *collector) add(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

// Validate checks a normalized submission. It returns nil or an *Error
// carrying every problem found.
func Validate(sub household.Submission) error {
	c := &collector{}

	login := sub.Household.LoginEmail
	switch {
	case login == "":
		c.add("ログイン用メールアドレスは必須です。")
	case !IsEmail(login):
		c.add("ログイン用メールアドレスの形式が正しくありません。")
	}

	checkAddress(c, "世帯", sub.Household.Address)

	if len(sub.Guardians) == 0 {
		c.add("保護者を最低1人登録してください。")
	}
	if len(sub.Students) == 0 {
		c.add("生徒を最低1人登録してください。")
	}

	for i, g := range sub.Guardians {
		checkGuardian(c, fmt.Sprintf("保護者(%d)", i+1), g)
	}
	checkPriorities(c, sub.Guardians)

	for i, s := range sub.Students {
		checkStudent(c, fmt.Sprintf("生徒(%d)", i+1), s)
	}

	if len(c.problems) > 0 {
		return &Error{Problems: c.problems}
	}
	return nil
}

func checkNames(c *collector, label, last, first, lastKana, firstKana string) {
	if last == "" || first == "" {
		c.add("%s: 氏名は必須です。", label)
	}
	if (lastKana != "" && !kanaPattern.MatchString(lastKana)) ||
		(firstKana != "" && !kanaPattern.MatchString(firstKana)) {
		c.add("%s: フリガナはカタカナで入力してください。", label)
	}
}

func checkEmail(c *collector, label, field, value string) {
	if value != "" && !IsEmail(value) {
		c.add("%s: %sの形式が正しくありません。", label, field)
	}
}

func checkPhone(c *collector, label, field, value string) {
	if value != "" && !phonePattern.MatchString(value) {
		c.add("%s: %sの形式が不正です。", label, field)
	}
}

func checkGuardian(c *collector, label string, g household.GuardianForm) {
	checkNames(c, label, g.LastName, g.FirstName, g.LastNameKana, g.FirstNameKana)
	if g.MobilePhone == "" && g.HomePhone == "" {
		c.add("%s: 携帯電話または自宅電話番号が必須です。", label)
	}
	checkPhone(c, label, "携帯電話番号", g.MobilePhone)
	checkPhone(c, label, "自宅電話番号", g.HomePhone)
	checkEmail(c, label, "メールアドレス", g.Email)
	checkEmail(c, label, "面談用メールアドレス", g.MeetingEmail)
	checkAddress(c, label, g.Address)
}

func checkStudent(c *collector, label string, s household.StudentForm) {
	checkNames(c, label, s.LastName, s.FirstName, s.LastNameKana, s.FirstNameKana)
	checkPhone(c, label, "携帯電話番号", s.MobilePhone)
	checkEmail(c, label, "メールアドレス", s.Email)
	checkEmail(c, label, "クラス用メールアドレス", s.ClassEmail)
	if s.GraduationYear != "" && !yearPattern.MatchString(s.GraduationYear) {
		c.add("%s: 卒業年度は西暦4桁で入力してください。", label)
	}
	checkAddress(c, label, s.Address)
}

// checkAddress applies only when some part of the address is filled in.
func checkAddress(c *collector, label string, a household.Address) {
	if a.IsZero() {
		return
	}
	if a.Prefecture == "" || a.City == "" || a.Street == "" {
		c.add("%s: 住所を記入する場合は都道府県、市区町村、町名・番地を全て埋めてください。", label)
	}
	if !postalPattern.MatchString(a.PostalCode) {
		c.add("%s: 郵便番号の形式が不正です。", label)
	}
}

// checkPriorities requires contact priorities 1..N without repeats once
// there is more than one guardian.
func checkPriorities(c *collector, guardians []household.GuardianForm) {
	n := len(guardians)
	if n <= 1 {
		return
	}
	seen := make(map[int]bool, n)
	duplicate := false
	for _, g := range guardians {
		if g.ContactPriority == 0 {
			continue
		}
		if seen[g.ContactPriority] {
			duplicate = true
		}
		seen[g.ContactPriority] = true
	}
	if duplicate {
		c.add("保護者の連絡優先順位が重複しています。")
	}
	for k := 1; k <= n; k++ {
		if !seen[k] {
			c.add("保護者の連絡優先順位は1からの連番である必要があります(%sが欠番)。", strconv.Itoa(k))
		}
	}
}
