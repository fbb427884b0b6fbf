package fetch

import (
	"net/url"
	"strings"
)

type proxyService struct {
	name     string
	endpoint string
	keyParam string
	apiKey   string
}

var proxyServices = map[string]proxyService{
	"zenrows":     {name: "zenrows", endpoint: "https://api.zenrows.com/v1/", keyParam: "apikey"},
	"scrapingant": {name: "scrapingant", endpoint: "https://api.scrapingant.com/v2/general", keyParam: "x-api-key"},
}

func lookupProxy(name, endpoint string) (*proxyService, bool) {
	svc, ok := proxyServices[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	if endpoint != "" {
		svc.endpoint = endpoint
	}
	return &svc, true
}

// wrap monta a URL da API de scraping com a URL alvo codificada
func (p *proxyService) wrap(target string) string {
	params := url.Values{}
	params.Set(p.keyParam, p.apiKey)
	params.Set("url", target)
	return p.endpoint + "?" + params.Encode()
}
