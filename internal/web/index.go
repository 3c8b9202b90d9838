package web

// Single-page dashboard: wallet state, latest balances and a live feed of
// notifications and purchases.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>junosale</title>
  <style>
    body { margin:0; padding:2rem; background:#ffffff; color:#111111; font-family:'Space Mono','JetBrains Mono',monospace; }
    #app { max-width:980px; margin:0 auto; border:3px solid #111; padding:2rem; box-shadow:12px 12px 0 rgba(0,0,0,.15); }
    h1 { font-size:1.2rem; letter-spacing:.1em; text-transform:uppercase; }
    .panel { border:2px solid #111; padding:1rem; margin-top:1.5rem; background:#f6f6f6; }
    .panel h2 { margin-top:0; font-size:.9rem; text-transform:uppercase; color:#4d4d4d; }
    #feed div { padding:.25rem 0; border-bottom:1px dashed rgba(0,0,0,.15); }
    .info { color:#4d4d4d; }
    .warning { color:#9a6700; }
    .success { color:#1a7f37; }
    .error { color:#cf222e; }
    table { width:100%; border-collapse:collapse; font-size:.85rem; }
    td, th { text-align:left; padding:.3rem .5rem; border-bottom:1px solid rgba(0,0,0,.1); }
  </style>
</head>
<body>
<div id="app">
  <h1>junosale</h1>
  <div class="panel">
    <h2>Wallet</h2>
    <table id="state">
      <tr><th>address</th><td id="address">-</td></tr>
      <tr><th>status</th><td id="status">-</td></tr>
      <tr><th>balance</th><td id="native">-</td></tr>
      <tr><th>token</th><td id="token">-</td></tr>
      <tr><th>price</th><td id="price">-</td></tr>
    </table>
  </div>
  <div class="panel">
    <h2>Buy</h2>
    <input id="amount" placeholder="amount" />
    <button id="buy">buy</button>
    <span id="preview"></span>
  </div>
  <div class="panel">
    <h2>Purchases</h2>
    <table id="purchases"><tr><th>time</th><th>amount</th><th>status</th><th>tx</th></tr></table>
  </div>
  <div class="panel">
    <h2>Feed</h2>
    <div id="feed"></div>
  </div>
</div>
<script>
  const feed = document.getElementById('feed');
  const purchases = document.getElementById('purchases');

  async function refreshState() {
    try {
      const res = await fetch('/state');
      const s = await res.json();
      document.getElementById('address').textContent = s.address || '(disconnected)';
      document.getElementById('status').textContent = s.status + (s.in_flight ? ' [submitting]' : '');
      document.getElementById('native').textContent = s.native ? s.native + ' ' + s.native_denom : '-';
      document.getElementById('token').textContent = s.token ? s.token + ' ' + s.token_symbol : '-';
      document.getElementById('price').textContent = s.price ? s.price + ' ' + s.price_denom : '-';
    } catch (e) { /* endpoint may not be up yet */ }
  }
  refreshState();
  setInterval(refreshState, 2000);

  const notes = new EventSource('/notifications/stream');
  notes.addEventListener('notification', ev => {
    const n = JSON.parse(ev.data);
    const row = document.createElement('div');
    row.className = n.level;
    row.textContent = new Date(n.ts).toLocaleTimeString() + ' ' + n.message;
    feed.prepend(row);
  });

  const amountInput = document.getElementById('amount');
  const preview = document.getElementById('preview');
  amountInput.addEventListener('input', async () => {
    if (!amountInput.value) { preview.textContent = ''; return; }
    try {
      const res = await fetch('/quote?amount=' + encodeURIComponent(amountInput.value));
      if (!res.ok) { preview.textContent = ''; return; }
      const q = await res.json();
      preview.textContent = '= ' + q.tokens + ' tokens @ ' + q.price + ' ' + q.price_denom;
    } catch (e) { preview.textContent = ''; }
  });
  document.getElementById('buy').addEventListener('click', async () => {
    const res = await fetch('/purchase', {
      method: 'POST',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({amount: amountInput.value})
    });
    const p = await res.json();
    if (p.status === 'success') amountInput.value = '';
  });

  const purchaseStream = new EventSource('/purchases/stream');
  purchaseStream.addEventListener('purchase', ev => {
    const p = JSON.parse(ev.data);
    const row = purchases.insertRow(1);
    row.insertCell().textContent = new Date(p.ts).toLocaleTimeString();
    row.insertCell().textContent = p.amount_micro + ' ' + p.denom;
    row.insertCell().textContent = p.status;
    row.insertCell().textContent = p.tx_hash || p.detail || '';
  });
</script>
</body>
</html>
`
