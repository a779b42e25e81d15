package dev

// devPageHTML 是內嵌的 Dev Panel UI。
//
// UI 行為（contract）：
//   - Scenario：由 /dev/meta 動態載入。
//   - Seed/Snap 互斥：
//   - Snap 非空 → Seed 會被清空並 disable。
//   - Seed 非空 → Snap 會被清空並 disable。
//   - Snap takes precedence（後端也會以 Snap 為準）。
//   - Rounds/Matches：
//   - Run：前端會 cap 在 200 回合以避免回傳 payload 過大。
//   - Sim ：前端會 cap 在 1,000 回合 × 100,000 場以避免長時間阻塞（仍屬 dev tooling）。
//
// 回傳呈現：
//   - Run：Summary 區顯示開場資訊；Round Results 展開後可點選查看 raw DevRoundResult JSON。
//   - Sim ：僅顯示統計報表，不顯示逐回合 results。
const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <link rel="icon" type="image/svg+xml" href="/favicon.svg" />
  <title>MarketLab Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; box-shadow:0 12px 50px rgba(0,0,0,0.35); }
    h1 { margin: 0 0 16px; font-size: 22px; letter-spacing: 0.3px; }
    .grid { display:grid; grid-template-columns: repeat(auto-fit, minmax(160px,1fr)); gap:12px; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:10px 12px; font-size:14px; }
    input:focus, select:focus { outline:1px solid #38bdf8; border-color:#38bdf8; }
    .actions { position:relative; display:flex; gap:10px; align-items:center; justify-content:flex-end; margin: 8px 0 14px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:10px 14px; font-weight:600; letter-spacing:0.2px; }
    #btn-run { background:#38bdf8; color:#0b1224; }
    #btn-sim { background:#22c55e; color:#0b1224; }
    #btn-clear { background:#1f2937; color:#e2e8f0; border:1px solid #334155; }
    button:disabled { opacity:0.6; cursor:not-allowed; }
    input:disabled, select:disabled { opacity: 0.55; cursor: not-allowed; filter: grayscale(0.25); }
    label.is-disabled { opacity: 0.55; }
    label.is-disabled input, label.is-disabled select { pointer-events: none; }
    .info { position:absolute; left:50%; transform:translateX(-50%); font-size:13px; color:#94a3b8; }
    .info.warn { color:#f87171; font-weight:600; }
    #summary { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:120px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; margin-bottom:12px; }
    #roundsBox { border:1px solid #1f2737; border-radius:12px; padding:10px; background:#0b1224; margin-bottom:12px; max-height: calc(60vh - 56px); overflow:auto; }
    #roundList { max-height: calc(60vh - 136px); overflow:auto; }
    .round-item { display:grid; grid-template-columns: minmax(3.5em, max-content) minmax(120px, max-content) max-content; align-items:center; column-gap:8px; width:100%; text-align:left; background:none; border:none; padding:6px 10px; color:#e2e8f0; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; cursor:pointer; border-left: 4px solid transparent; }
    .round-item:hover { background:#1f2937; border-left-color:#38bdf8; }
    .round-item.selected { background:#2563eb; border-left-color:#60a5fa; }
    .round-index { color:#94a3b8; text-align:right; justify-self:end; min-width:3.5em; font-variant-numeric: tabular-nums; }
    .round-rev { text-align:right; justify-self:end; font-variant-numeric: tabular-nums; }
    .round-leader { text-align:right; justify-self:end; }
    .rb-true { color:#f59e0b; font-weight:600; }
    #detail { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:220px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; display:none; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>MarketLab Dev Panel</h1>
    <div class="grid">
      <label>Scenario
        <select id="scenario"></select>
      </label>
      <label>Teams
        <input id="teams" type="number" min="2" max="16" value="4" />
      </label>
      <label>Seed (string)
        <input id="seed" type="text" placeholder="Empty = auto" />
      </label>
      <label>Snap (base64url)
        <input id="snap" type="text" placeholder="Paste snap (base64url)" />
      </label>
      <label>Rounds
        <input id="rounds" type="number" min="1" max="1000" value="8" />
      </label>
      <label>Matches (Sim)
        <input id="matches" type="number" min="1" max="100000" value="1000" />
      </label>
    </div>
    <div class="actions">
      <button id="btn-run">Run</button>
      <button id="btn-sim">Sim</button>
      <button id="btn-clear">Clear</button>
      <span class="info" id="info"></span>
    </div>

    <pre id="summary"></pre>

    <details id="roundsBox" style="display:none;">
      <summary>Round Results</summary>
      <div id="roundList"></div>
    </details>

    <pre id="detail" style="display:none;"></pre>
  </div>
<script>
const state = { meta: null, results: [] };
const scenarioSel = document.getElementById('scenario');
const teamsInput = document.getElementById('teams');
const seedInput = document.getElementById('seed');
const snapInput = document.getElementById('snap');
const roundsInput = document.getElementById('rounds');
const matchesInput = document.getElementById('matches');
const summary = document.getElementById('summary');
const roundsBox = document.getElementById('roundsBox');
const roundList = document.getElementById('roundList');
const detail = document.getElementById('detail');
const infoEl = document.getElementById('info');
const btnRun = document.getElementById('btn-run');
const btnSim = document.getElementById('btn-sim');
const btnClear = document.getElementById('btn-clear');
const numberFormatter = new Intl.NumberFormat('en-US');

function setDisabled(el, disabled) {
  el.disabled = disabled;
  const label = el.closest('label');
  if (label) label.classList.toggle('is-disabled', disabled);
}

function syncInputLocks() {
  const seedValue = seedInput.value.trim();
  const snapValue = snapInput.value.trim();
  if (snapValue !== '') {
    seedInput.value = '';
    setDisabled(seedInput, true);
    setDisabled(snapInput, false);
    return;
  }
  if (seedValue !== '') {
    snapInput.value = '';
    setDisabled(snapInput, true);
    setDisabled(seedInput, false);
    return;
  }
  setDisabled(seedInput, false);
  setDisabled(snapInput, false);
}

function formatAmount(value) {
  if (typeof value !== 'number' || !Number.isFinite(value)) return '0';
  return numberFormatter.format(Math.round(value));
}

async function loadMeta() {
  try {
    const res = await fetch('/dev/meta');
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const scenarios = Array.isArray(data) ? data : (data.scenarios || data.summary || []);
    state.meta = { scenarios };
    scenarioSel.innerHTML = '';
    state.meta.scenarios.forEach((s) => {
      const opt = document.createElement('option');
      opt.value = String(s.sid);
      opt.textContent = s.name + ' (' + (s.segments || []).length + ' segments)';
      scenarioSel.appendChild(opt);
    });
    refreshTeamCap();
    summary.textContent = '';
    roundsBox.style.display = 'none';
    detail.style.display = 'none';
    setInfo('', false);
  } catch (err) {
    summary.textContent = 'Failed to load meta: ' + err.message;
  }
}

function getSelectedScenario() {
  if (!state.meta || !state.meta.scenarios) return null;
  return state.meta.scenarios.find((s) => String(s.sid) === scenarioSel.value);
}

function refreshTeamCap() {
  const sc = getSelectedScenario();
  if (sc && sc.max_teams > 0) {
    teamsInput.max = sc.max_teams;
    if (Number(teamsInput.value) > sc.max_teams) teamsInput.value = sc.max_teams;
  }
}

scenarioSel.addEventListener('change', refreshTeamCap);

function setInfo(text, isWarn) {
  infoEl.textContent = text;
  infoEl.classList.toggle('warn', !!isWarn);
}

function setLoading(isLoading) {
  btnRun.disabled = isLoading;
  btnSim.disabled = isLoading;
  if (isLoading) setInfo('Running…', false);
}

function clearSelection() {
  summary.textContent = '';
  roundsBox.style.display = 'none';
  detail.style.display = 'none';
  roundList.innerHTML = '';
  state.results = [];
}

function renderDetail(index) {
  if (!state.results || !state.results[index]) {
    detail.textContent = '';
    detail.style.display = 'none';
    return;
  }
  detail.textContent = JSON.stringify(state.results[index], null, 2);
  detail.style.display = 'block';
  const buttons = roundList.querySelectorAll('.round-item');
  buttons.forEach((btn, idx) => btn.classList.toggle('selected', idx === index));
}

function buildPayload() {
  const payload = {
    sid: Number(scenarioSel.value) || 0,
    teams: Number(teamsInput.value) || 0,
    rounds: Number(roundsInput.value) || 1,
    matches: Number(matchesInput.value) || 1,
  };
  const snap = snapInput.value.trim();
  const seed = seedInput.value.trim();
  if (snap) {
    payload.snap = snap;
  } else if (seed) {
    payload.seed = seed;
  }
  return payload;
}

async function run() {
  setLoading(true);
  clearSelection();
  const payload = buildPayload();
  payload.rounds = Math.min(payload.rounds, 200);
  try {
    const res = await fetch('/dev/run', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();

    const summaryObj = { ...data };
    delete summaryObj.results;
    summary.textContent = JSON.stringify(summaryObj, null, 2);
    setInfo('', false);

    const results = Array.isArray(data.results) ? data.results : [];
    if (results.length > 0) {
      state.results = results;
      roundList.innerHTML = '';
      results.forEach((dto, idx) => {
        const rr = dto && dto.result ? dto.result : dto;
        const teams = Array.isArray(rr && rr.teams) ? rr.teams : [];
        let leader = '';
        let total = 0;
        let best = -Infinity;
        teams.forEach((t) => {
          total += t.revenue || 0;
          if ((t.revenue || 0) > best) { best = t.revenue || 0; leader = t.team_id; }
        });
        const rb = !!(rr && rr.rubberband_applied);
        const btn = document.createElement('button');
        btn.type = 'button';
        btn.className = 'round-item';
        const idxSpan = document.createElement('span');
        idxSpan.className = 'round-index';
        idxSpan.textContent = '#' + (rr && rr.round ? rr.round : idx + 1);
        const revSpan = document.createElement('span');
        revSpan.className = 'round-rev';
        revSpan.textContent = formatAmount(total);
        const leaderSpan = document.createElement('span');
        leaderSpan.className = 'round-leader' + (rb ? ' rb-true' : '');
        leaderSpan.textContent = leader + (rb ? ' *' : '');
        btn.appendChild(idxSpan);
        btn.appendChild(revSpan);
        btn.appendChild(leaderSpan);
        btn.title = 'Round ' + (idx + 1) + ' | revenue=' + formatAmount(total) + ' | leader=' + leader;
        btn.addEventListener('click', () => renderDetail(idx));
        roundList.appendChild(btn);
      });
      roundsBox.style.display = 'block';
      renderDetail(0);
    }
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

async function runSim() {
  setLoading(true);
  clearSelection();
  const payload = buildPayload();
  payload.rounds = Math.min(payload.rounds, 1000);
  payload.matches = Math.min(payload.matches, 100000);
  try {
    const res = await fetch('/dev/sim', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    summary.textContent = JSON.stringify(data, null, 2);
    setInfo('', false);
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

btnRun.addEventListener('click', run);
btnSim.addEventListener('click', runSim);
btnClear.addEventListener('click', () => {
  clearSelection();
  setInfo('', false);
});
seedInput.addEventListener('input', syncInputLocks);
snapInput.addEventListener('input', syncInputLocks);

syncInputLocks();
loadMeta();
</script>
</body>
</html>`
