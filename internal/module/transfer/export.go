package transfer

import (
	"context"
	"fmt"
	"time"

	"yqpoint-system/internal/global/database"
	"yqpoint-system/internal/global/response"
	"yqpoint-system/internal/model"
	"yqpoint-system/tools"
)

type exportRow struct {
	ID         uint       `excel:"编号"`
	Proposer   string     `excel:"发起方"`
	Recipient  string     `excel:"接收方"`
	Amount     float64    `excel:"数额"`
	Status     string     `excel:"状态"`
	Message    string     `excel:"留言"`
	StartTime  time.Time  `excel:"发起时间"`
	FinishTime *time.Time `excel:"完成时间"`
}

type ExportResult struct {
	Filename string `json:"filename"`
	Key      string `json:"key,omitempty"`
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"-"`
}

// Export 导出账户的全部转账记录为 xlsx，配置了存储时同时上传
func (s *Service) Export(ctx context.Context, ref model.Ref) (*ExportResult, error) {
	records, err := s.Records(ctx, ref, RecordFilter{})
	if err != nil {
		return nil, err
	}
	names, err := s.accountNames(ctx, records)
	if err != nil {
		return nil, database.Wrap(err)
	}

	rows := make([]exportRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, exportRow{
			ID:         r.ID,
			Proposer:   names[r.Proposer()],
			Recipient:  names[r.Recipient()],
			Amount:     r.Amount,
			Status:     r.Status.String(),
			Message:    r.Message,
			StartTime:  r.StartTime,
			FinishTime: r.FinishTime,
		})
	}
	data, err := tools.ExcelBytes("转账记录", rows)
	if err != nil {
		return nil, response.ErrServerInternal.WithOrigin(err)
	}

	result := &ExportResult{
		Filename: fmt.Sprintf("transfer-%s-%d-%s.xlsx", ref.Kind, ref.ID, s.now().Format("20060102")),
		Data:     data,
	}
	if s.store == nil {
		return result, nil
	}
	if result.Key, err = s.store.Put(ctx, result.Filename, tools.ExcelContentType, data); err != nil {
		return nil, response.ErrServerInternal.WithOrigin(err)
	}
	if result.URL, err = s.store.URL(ctx, result.Key); err != nil {
		return nil, response.ErrServerInternal.WithOrigin(err)
	}
	s.log.Info("转账记录已导出", "account", ref.String(), "rows", len(rows), "key", result.Key)
	return result, nil
}

func (s *Service) accountNames(ctx context.Context, records []model.TransferRecord) (map[model.Ref]string, error) {
	ids := map[model.AccountKind][]uint{}
	for _, r := range records {
		for _, ref := range []model.Ref{r.Proposer(), r.Recipient()} {
			ids[ref.Kind] = append(ids[ref.Kind], ref.ID)
		}
	}

	names := map[model.Ref]string{}
	db := s.db.WithContext(ctx)
	if len(ids[model.AccountPerson]) > 0 {
		var persons []model.Person
		if err := db.Select("id", "name").Find(&persons, ids[model.AccountPerson]).Error; err != nil {
			return nil, err
		}
		for _, p := range persons {
			names[p.Ref()] = p.Name
		}
	}
	if len(ids[model.AccountOrg]) > 0 {
		var orgs []model.Organization
		if err := db.Select("id", "name").Find(&orgs, ids[model.AccountOrg]).Error; err != nil {
			return nil, err
		}
		for _, o := range orgs {
			names[o.Ref()] = o.Name
		}
	}
	return names, nil
}
