package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"catalog-go/internal/enrichment"
	"catalog-go/internal/upstream"
)

// CharacterDetail 人物详情：上游数据加自定义扩展字段
type CharacterDetail struct {
	upstream.Person
	ID          int    `json:"id"`
	Nickname    string `json:"nickname,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// PlanetDetail 星球详情
type PlanetDetail struct {
	upstream.Planet
	ID          int    `json:"id"`
	Nickname    string `json:"nickname,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// SpeciesDetail 物种详情
type SpeciesDetail struct {
	upstream.Species
	ID          int    `json:"id"`
	Nickname    string `json:"nickname,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// ListResult 分页列表响应
type ListResult[T any] struct {
	Count       int  `json:"count"`
	Page        int  `json:"page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
	Results     []T  `json:"results"`
}

// CatalogService 目录服务
// 组合上游数据API和扩展数据库，产出接口响应
// 扩展数据库不可用或无记录时退化为纯上游数据，不阻塞请求
type CatalogService struct {
	swapi  *upstream.Client
	enrich *enrichment.Client // 可以为nil（未配置扩展数据库）
	health *HealthChecker
}

func NewCatalogService(swapi *upstream.Client, enrich *enrichment.Client, health *HealthChecker) *CatalogService {
	return &CatalogService{
		swapi:  swapi,
		enrich: enrich,
		health: health,
	}
}

// GetHealthChecker 返回健康检查器
func (s *CatalogService) GetHealthChecker() *HealthChecker {
	return s.health
}

// GetCharacter 按id获取人物详情
func (s *CatalogService) GetCharacter(ctx context.Context, id int) (*CharacterDetail, error) {
	person, err := s.swapi.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &CharacterDetail{Person: *person, ID: id}
	if record := s.enrichment(ctx, "people", id); record != nil {
		detail.Nickname = record.Nickname
		detail.Description = record.Description
		detail.ImageURL = imageURL(record.ImageKey)
	}
	return detail, nil
}

// ListCharacters 人物分页列表
func (s *CatalogService) ListCharacters(ctx context.Context, page int, search string) (*ListResult[CharacterDetail], error) {
	result, err := s.swapi.ListPeople(ctx, page, search)
	if err != nil {
		return nil, err
	}

	list := newListResult[CharacterDetail](result.Count, page, result.Next != nil, result.Previous != nil)
	for _, person := range result.Results {
		list.Results = append(list.Results, CharacterDetail{
			Person: person,
			ID:     idFromURL(person.URL),
		})
	}
	return list, nil
}

// GetPlanet 按id获取星球详情
func (s *CatalogService) GetPlanet(ctx context.Context, id int) (*PlanetDetail, error) {
	planet, err := s.swapi.GetPlanet(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &PlanetDetail{Planet: *planet, ID: id}
	if record := s.enrichment(ctx, "planets", id); record != nil {
		detail.Nickname = record.Nickname
		detail.Description = record.Description
		detail.ImageURL = imageURL(record.ImageKey)
	}
	return detail, nil
}

// ListPlanets 星球分页列表
func (s *CatalogService) ListPlanets(ctx context.Context, page int, search string) (*ListResult[PlanetDetail], error) {
	result, err := s.swapi.ListPlanets(ctx, page, search)
	if err != nil {
		return nil, err
	}

	list := newListResult[PlanetDetail](result.Count, page, result.Next != nil, result.Previous != nil)
	for _, planet := range result.Results {
		list.Results = append(list.Results, PlanetDetail{
			Planet: planet,
			ID:     idFromURL(planet.URL),
		})
	}
	return list, nil
}

// GetSpecies 按id获取物种详情
func (s *CatalogService) GetSpecies(ctx context.Context, id int) (*SpeciesDetail, error) {
	species, err := s.swapi.GetSpecies(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &SpeciesDetail{Species: *species, ID: id}
	if record := s.enrichment(ctx, "species", id); record != nil {
		detail.Nickname = record.Nickname
		detail.Description = record.Description
		detail.ImageURL = imageURL(record.ImageKey)
	}
	return detail, nil
}

// ListSpecies 物种分页列表
func (s *CatalogService) ListSpecies(ctx context.Context, page int, search string) (*ListResult[SpeciesDetail], error) {
	result, err := s.swapi.ListSpecies(ctx, page, search)
	if err != nil {
		return nil, err
	}

	list := newListResult[SpeciesDetail](result.Count, page, result.Next != nil, result.Previous != nil)
	for _, sp := range result.Results {
		list.Results = append(list.Results, SpeciesDetail{
			Species: sp,
			ID:      idFromURL(sp.URL),
		})
	}
	return list, nil
}

// enrichment 查询扩展记录，无记录或查询失败都返回nil
// 扩展数据库的故障只降级不报错，上游数据本身仍然可用
func (s *CatalogService) enrichment(ctx context.Context, resourceType string, id int) *enrichment.Record {
	if s.enrich == nil {
		return nil
	}

	record, err := s.enrich.Get(ctx, resourceType, id)
	if err != nil {
		if !errors.Is(err, enrichment.ErrNoRecord) {
			log.Printf("[Catalog] 扩展数据查询失败 %s/%d: %v", resourceType, id, err)
		}
		return nil
	}
	return record
}

func newListResult[T any](count, page int, hasNext, hasPrev bool) *ListResult[T] {
	return &ListResult[T]{
		Count:       count,
		Page:        page,
		HasNext:     hasNext,
		HasPrevious: hasPrev,
		Results:     make([]T, 0),
	}
}

func imageURL(key string) string {
	if key == "" {
		return ""
	}
	return "/api/images/" + strings.TrimPrefix(key, "/")
}

// idFromURL 从上游资源URL提取数字id
// "https://swapi.dev/api/people/1/" -> 1
func idFromURL(url string) int {
	trimmed := strings.TrimSuffix(url, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0
	}
	id, err := strconv.Atoi(trimmed[idx+1:])
	if err != nil {
		return 0
	}
	return id
}
