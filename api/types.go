package api

import (
	"encoding/json"
	"strings"
	"time"

	"sprintreport/models"
)

// IdentityRef はAPI上のユーザー参照です。オブジェクト形式と "Name <unique>" 文字列形式の両方を受け付けます
type IdentityRef struct {
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

// UnmarshalJSON は文字列形式のユーザー参照も解釈します
func (r *IdentityRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = IdentityRef(ParseIdentityString(s))
		return nil
	}

	type plain IdentityRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = IdentityRef(p)
	return nil
}

// ToModel はドメインの Identity に変換します
func (r IdentityRef) ToModel() models.Identity {
	return models.Identity{
		DisplayName: strings.TrimSpace(r.DisplayName),
		UniqueName:  strings.TrimSpace(r.UniqueName),
	}
}

// ParseIdentityString は "Jane Doe <ACME\jdoe>" 形式を分解します
func ParseIdentityString(s string) models.Identity {
	s = strings.TrimSpace(s)
	open := strings.LastIndex(s, "<")
	if open < 0 || !strings.HasSuffix(s, ">") {
		return models.Identity{DisplayName: s}
	}
	return models.Identity{
		DisplayName: strings.TrimSpace(s[:open]),
		UniqueName:  strings.TrimSpace(s[open+1 : len(s)-1]),
	}
}

// IdentityFromValue はフィールド値 (map / string / nil) から Identity を作ります
func IdentityFromValue(v interface{}) models.Identity {
	switch val := v.(type) {
	case string:
		return ParseIdentityString(val)
	case map[string]interface{}:
		display, _ := val["displayName"].(string)
		unique, _ := val["uniqueName"].(string)
		return models.Identity{
			DisplayName: strings.TrimSpace(display),
			UniqueName:  strings.TrimSpace(unique),
		}
	}
	return models.Identity{}
}

// IterationAttributes はイテレーションの期間情報です
type IterationAttributes struct {
	StartDate  *time.Time `json:"startDate"`
	FinishDate *time.Time `json:"finishDate"`
	TimeFrame  string     `json:"timeFrame"`
}

// IterationDTO はチーム設定のイテレーションです
type IterationDTO struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Path       string              `json:"path"`
	Attributes IterationAttributes `json:"attributes"`
}

// ToModel はドメインの Iteration に変換します
func (d IterationDTO) ToModel() models.Iteration {
	it := models.Iteration{ID: d.ID, Name: d.Name, Path: d.Path}
	if d.Attributes.StartDate != nil {
		it.Start = d.Attributes.StartDate.UTC()
	}
	if d.Attributes.FinishDate != nil {
		it.End = d.Attributes.FinishDate.UTC()
	}
	return it
}

type iterationListResponse struct {
	Count int            `json:"count"`
	Value []IterationDTO `json:"value"`
}

// DateRange は休暇期間です
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ActivityDTO はアクティビティごとの1日あたりキャパシティです
type ActivityDTO struct {
	Name           string  `json:"name"`
	CapacityPerDay float64 `json:"capacityPerDay"`
}

// CapacityDTO はメンバー1人分のキャパシティ設定です
type CapacityDTO struct {
	TeamMember IdentityRef   `json:"teamMember"`
	Activities []ActivityDTO `json:"activities"`
	DaysOff    []DateRange   `json:"daysOff"`
}

// APIバージョンによって value / teamMembers のどちらかで返ってくる
type capacityResponse struct {
	Value       []CapacityDTO `json:"value"`
	TeamMembers []CapacityDTO `json:"teamMembers"`
}

func (r capacityResponse) members() []CapacityDTO {
	if len(r.TeamMembers) > 0 {
		return r.TeamMembers
	}
	return r.Value
}

// WorkItemReference はWIQL結果の1件です
type WorkItemReference struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlResponse struct {
	WorkItems         []WorkItemReference `json:"workItems"`
	ContinuationToken string              `json:"continuationToken"`
}

// WiqlPage はWIQLクエリ1ページ分の結果です
type WiqlPage struct {
	IDs               []int
	ContinuationToken string
}

// RelationDTO は作業項目のリンクです
type RelationDTO struct {
	Rel string `json:"rel"`
	URL string `json:"url"`
}

// WorkItemDTO は展開済みの作業項目です。Fields が nil の場合はフィールドブロック欠落です
type WorkItemDTO struct {
	ID        int                    `json:"id"`
	Rev       int                    `json:"rev"`
	Fields    map[string]interface{} `json:"fields"`
	Relations []RelationDTO          `json:"relations"`
	URL       string                 `json:"url"`
}

type workItemsBatchResponse struct {
	Count int           `json:"count"`
	Value []WorkItemDTO `json:"value"`
}

// FieldChange はリビジョンでのフィールド変更です
type FieldChange struct {
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
}

// UpdateDTO は作業項目の更新履歴1件です
type UpdateDTO struct {
	ID          int                    `json:"id"`
	Rev         int                    `json:"rev"`
	RevisedBy   IdentityRef            `json:"revisedBy"`
	RevisedDate time.Time              `json:"revisedDate"`
	Fields      map[string]FieldChange `json:"fields"`
}

type updatesResponse struct {
	Count int         `json:"count"`
	Value []UpdateDTO `json:"value"`
}
