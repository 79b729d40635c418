package server

import "html/template"

// labels is the per-locale UI text.
type labels struct {
	Locale      string `json:"locale"`
	Title       string `json:"title"`
	TotalUnits  string `json:"total_units"`
	TotalSales  string `json:"total_sales"`
	SelectSKU   string `json:"select_sku"`
	TopBy       string `json:"top_by"`
	Units       string `json:"units"`
	Revenue     string `json:"revenue"`
	Image       string `json:"image"`
	NoImage     string `json:"no_image"`
	UnknownSKU  string `json:"unknown_sku"`
	Other       string `json:"other"`
	Search      string `json:"search"`
	Download    string `json:"download"`
	Previous    string `json:"previous"`
	Next        string `json:"next"`
	PageOf      string `json:"page_of"`
	MappingNote string `json:"mapping_note"`
}

var localeLabels = map[string]labels{
	"en": {
		Locale:      "en",
		Title:       "SKU Sales Dashboard",
		TotalUnits:  "Total units sold",
		TotalSales:  "Total revenue",
		SelectSKU:   "Select SKU",
		TopBy:       "Top products by",
		Units:       "Units sold (Total Count)",
		Revenue:     "Revenue (Total Net Sales)",
		Image:       "Image",
		NoImage:     "No image available.",
		UnknownSKU:  "SKU not found.",
		Other:       "Other",
		Search:      "Search SKU or image",
		Download:    "Download CSV",
		Previous:    "Previous",
		Next:        "Next",
		PageOf:      "Page %d of %d",
		MappingNote: "Drive image mapping applied",
	},
	"zh": {
		Locale:      "zh",
		Title:       "SKU 销售看板",
		TotalUnits:  "总销量",
		TotalSales:  "总销售额",
		SelectSKU:   "选择 SKU",
		TopBy:       "商品排行依据",
		Units:       "销量 (Total Count)",
		Revenue:     "销售额 (Total Net Sales)",
		Image:       "图片",
		NoImage:     "暂无图片。",
		UnknownSKU:  "未找到该 SKU。",
		Other:       "其他",
		Search:      "搜索 SKU 或图片",
		Download:    "下载 CSV",
		Previous:    "上一页",
		Next:        "下一页",
		PageOf:      "第 %d / %d 页",
		MappingNote: "已应用云端图片映射",
	},
}

func labelsFor(locale string) labels {
	if l, ok := localeLabels[locale]; ok {
		return l
	}
	return localeLabels["en"]
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang="{{.lang}}">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.title}}</title>
  <style>
    :root { --ink: #1d2330; --muted: #6b7385; --line: #e3e6ee; --accent: #2f6fed; --bg: #f6f7fb; }
    * { box-sizing: border-box; }
    body { margin: 0; font-family: system-ui, -apple-system, "Segoe UI", sans-serif; color: var(--ink); background: var(--bg); }
    header { padding: 20px 28px; background: #fff; border-bottom: 1px solid var(--line); display: flex; align-items: center; justify-content: space-between; gap: 16px; }
    header h1 { margin: 0; font-size: 22px; }
    main { padding: 24px 28px; display: grid; gap: 20px; }
    .card { background: #fff; border: 1px solid var(--line); border-radius: 12px; padding: 18px 20px; }
    .kpis { display: grid; grid-template-columns: repeat(2, minmax(0, 1fr)); gap: 20px; }
    .kpi .label { color: var(--muted); font-size: 13px; }
    .kpi .value { font-size: 28px; font-weight: 600; margin-top: 6px; }
    .split { display: grid; grid-template-columns: minmax(0, 1fr) minmax(0, 1.2fr); gap: 20px; }
    .detail img { max-width: 100%; max-height: 320px; border-radius: 8px; display: block; margin-top: 12px; }
    .placeholder { margin-top: 12px; padding: 40px 12px; text-align: center; color: var(--muted); border: 1px dashed var(--line); border-radius: 8px; }
    .specs { display: grid; grid-template-columns: auto 1fr; gap: 6px 14px; margin-top: 12px; font-size: 14px; }
    .specs dt { color: var(--muted); }
    .pie-wrap { display: flex; gap: 20px; align-items: center; flex-wrap: wrap; }
    .pie { width: 220px; height: 220px; border-radius: 50%; flex: none; }
    .legend { list-style: none; padding: 0; margin: 0; font-size: 13px; display: grid; gap: 4px; }
    .legend span { display: inline-block; width: 10px; height: 10px; border-radius: 2px; margin-right: 6px; }
    table { width: 100%; border-collapse: collapse; font-size: 14px; }
    th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid var(--line); }
    th { cursor: pointer; user-select: none; color: var(--muted); font-weight: 600; }
    td.num { text-align: right; font-variant-numeric: tabular-nums; }
    .toolbar { display: flex; gap: 10px; margin-bottom: 12px; align-items: center; }
    input, select, button { font: inherit; padding: 6px 10px; border: 1px solid var(--line); border-radius: 6px; background: #fff; }
    a.button { color: #fff; background: var(--accent); padding: 8px 14px; border-radius: 6px; text-decoration: none; }
    .muted { color: var(--muted); font-size: 13px; }
    @media (max-width: 860px) { .split, .kpis { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
  <header>
    <h1>{{.title}}</h1>
    <a class="button" href="/download.csv">{{.labels.Download}}</a>
  </header>
  <main>
    <section class="kpis">
      <div class="card kpi"><div class="label">{{.labels.TotalUnits}}</div><div class="value" id="kpi-units"></div></div>
      <div class="card kpi"><div class="label">{{.labels.TotalSales}}</div><div class="value" id="kpi-revenue"></div></div>
    </section>
    <section class="split">
      <div class="card detail">
        <label>{{.labels.SelectSKU}} <select id="sku"></select></label>
        <dl class="specs" id="specs"></dl>
        <div id="image"></div>
      </div>
      <div class="card">
        <label>{{.labels.TopBy}} <select id="metric"></select></label>
        <div class="pie-wrap" style="margin-top:14px">
          <div class="pie" id="pie"></div>
          <ul class="legend" id="legend"></ul>
        </div>
      </div>
    </section>
    <section class="card">
      <div class="toolbar">
        <input id="search" type="search" placeholder="{{.labels.Search}}">
        <span class="muted" id="mapping"></span>
      </div>
      <table>
        <thead><tr>
          <th data-col="SKU">SKU</th>
          <th data-col="images">images</th>
          <th data-col="Total Count">Total Count</th>
          <th data-col="Total Net Sales">Total Net Sales</th>
        </tr></thead>
        <tbody id="rows"></tbody>
      </table>
      <div class="toolbar" style="margin-top:12px">
        <button id="prev">{{.labels.Previous}}</button>
        <span class="muted" id="pageinfo"></span>
        <button id="next">{{.labels.Next}}</button>
      </div>
    </section>
  </main>
  <script>
    const summary = {{.summary_json}};
    const initialDetail = {{.detail_json}};
    const initialPie = {{.pie_json}};
    const L = {{.labels_json}};
    const palette = ["#2f6fed","#f28b30","#2bb673","#e5484d","#8e6cef","#12a4b5","#d6a100","#c2410c","#4b5563","#db2777","#94a3b8"];
    const fmtNum = new Intl.NumberFormat(summary.locale);
    const fmtMoney = new Intl.NumberFormat(summary.locale, { minimumFractionDigits: 2, maximumFractionDigits: 2 });
    const el = (id) => document.getElementById(id);
    const text = (tag, value) => { const n = document.createElement(tag); n.textContent = value; return n; };

    el("kpi-units").textContent = fmtNum.format(summary.totals.total_units);
    el("kpi-revenue").textContent = fmtMoney.format(Number(summary.totals.total_revenue));
    if (summary.mapping_applied) el("mapping").textContent = L.mapping_note;

    const skuSelect = el("sku");
    for (const sku of summary.skus) skuSelect.appendChild(new Option(sku, sku));
    const metricSelect = el("metric");
    for (const m of summary.metrics) metricSelect.appendChild(new Option(m === "Total Count" ? L.units : L.revenue, m));
    metricSelect.value = summary.default_metric;

    function renderDetail(d) {
      const specs = el("specs"), image = el("image");
      specs.replaceChildren();
      image.replaceChildren();
      if (!d || !d.found) { image.appendChild(text("div", d && d.message ? d.message : "")); return; }
      const p = d.product;
      for (const [k, v] of [["SKU", p.sku], ["images", p.images], [L.units, fmtNum.format(p.total_count)], [L.revenue, fmtMoney.format(Number(p.total_net_sales))]]) {
        specs.appendChild(text("dt", k));
        specs.appendChild(text("dd", v));
      }
      if (p.image.found) {
        const img = document.createElement("img");
        img.src = p.image.url;
        img.alt = p.sku;
        img.onerror = () => image.replaceChildren(text("div", L.no_image));
        image.appendChild(img);
      } else {
        const ph = text("div", p.image.placeholder);
        ph.className = "placeholder";
        image.appendChild(ph);
      }
    }

    function renderPie(pie) {
      const total = pie.slices.reduce((s, x) => s + Number(x.value), 0);
      const legend = el("legend");
      legend.replaceChildren();
      let at = 0;
      const stops = [];
      pie.slices.forEach((s, i) => {
        const color = palette[i % palette.length];
        const share = total > 0 ? s.share : 0;
        stops.push(color + " " + (at * 360) + "deg " + ((at + share) * 360) + "deg");
        at += share;
        const li = document.createElement("li");
        const sw = document.createElement("span");
        sw.style.background = color;
        li.appendChild(sw);
        li.appendChild(document.createTextNode(s.label + " (" + (share * 100).toFixed(1) + "%)"));
        legend.appendChild(li);
      });
      el("pie").style.background = stops.length && total > 0 ? "conic-gradient(" + stops.join(",") + ")" : "var(--line)";
    }

    const tableState = { q: "", sort: "", order: "asc", page: 1 };
    async function loadTable() {
      const params = new URLSearchParams({ q: tableState.q, page: tableState.page, metric: metricSelect.value });
      if (tableState.sort) { params.set("sort", tableState.sort); params.set("order", tableState.order); }
      const res = await fetch("/api/table?" + params);
      if (!res.ok) return;
      const data = await res.json();
      const body = el("rows");
      body.replaceChildren();
      for (const r of data.rows) {
        const tr = document.createElement("tr");
        tr.appendChild(text("td", r.sku));
        tr.appendChild(text("td", r.images));
        const c = text("td", fmtNum.format(r.total_count)); c.className = "num"; tr.appendChild(c);
        const s = text("td", fmtMoney.format(Number(r.total_net_sales))); s.className = "num"; tr.appendChild(s);
        body.appendChild(tr);
      }
      el("pageinfo").textContent = L.page_of.replace("%d", data.page).replace("%d", data.page_count);
      el("prev").disabled = data.page <= 1;
      el("next").disabled = data.page >= data.page_count;
    }

    skuSelect.addEventListener("change", async () => {
      const res = await fetch("/api/products/" + encodeURIComponent(skuSelect.value));
      renderDetail(await res.json());
    });
    metricSelect.addEventListener("change", async () => {
      const res = await fetch("/api/pie?" + new URLSearchParams({ metric: metricSelect.value, n: summary.top_n }));
      if (res.ok) renderPie(await res.json());
    });
    el("search").addEventListener("input", (e) => { tableState.q = e.target.value; tableState.page = 1; loadTable(); });
    document.querySelectorAll("th[data-col]").forEach((th) => th.addEventListener("click", () => {
      const col = th.dataset.col;
      tableState.order = tableState.sort === col && tableState.order === "asc" ? "desc" : "asc";
      tableState.sort = col;
      loadTable();
    }));
    el("prev").addEventListener("click", () => { tableState.page--; loadTable(); });
    el("next").addEventListener("click", () => { tableState.page++; loadTable(); });

    renderDetail(initialDetail);
    renderPie(initialPie);
    loadTable();
  </script>
</body>
</html>
`))
